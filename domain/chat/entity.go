package chat

// Message is one durable chat message. Exactly one of Content/Image is set:
// text messages carry Content, image messages carry the public path of the
// uploaded file in Image. Messages are append-only and never mutated.
type Message struct {
	ID       uint    `gorm:"primarykey" json:"id"`
	Content  *string `gorm:"type:text" json:"content"`
	Image    *string `gorm:"type:text" json:"image"`
	Username string  `gorm:"size:100;not null" json:"username"`
}

// TableName returns the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// IsImage reports whether the message is an image message.
func (m *Message) IsImage() bool {
	return m.Image != nil
}
