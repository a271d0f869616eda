package history

// MessageResponse is one persisted message as returned by the list service.
type MessageResponse struct {
	ID       uint    `json:"id"`
	Content  *string `json:"content"`
	Image    *string `json:"image"`
	Username string  `json:"username"`
}

// AppendMessageRequest is the request for appending a message. Exactly one of
// Content/Image must be set.
type AppendMessageRequest struct {
	Content  *string `json:"content"`
	Image    *string `json:"image"`
	Username string  `json:"username"`
}

// AppendMessageResponse is the response for a successful append.
type AppendMessageResponse struct {
	ID uint `json:"id"`
}

// ListMessagesRequest is the request for listing all messages.
type ListMessagesRequest struct{}

// ListMessagesResponse is the response for listing all messages.
type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int               `json:"total"`
}
