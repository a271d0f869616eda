package history

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"

	"github.com/Josef1981/EngineersCafe/domain/chat"
)

// appendMessage handles the history.append service request.
func (m *HistoryModule) appendMessage(_ context.Context, req AppendMessageRequest, _ *mono.Msg) (AppendMessageResponse, error) {
	if req.Username == "" {
		return AppendMessageResponse{}, fmt.Errorf("username is required")
	}
	if (req.Content == nil) == (req.Image == nil) {
		return AppendMessageResponse{}, fmt.Errorf("exactly one of content or image must be set")
	}

	msg := &chat.Message{
		Content:  req.Content,
		Image:    req.Image,
		Username: req.Username,
	}

	if err := m.repo.Append(msg); err != nil {
		return AppendMessageResponse{}, err
	}

	return AppendMessageResponse{ID: msg.ID}, nil
}

// listMessages handles the history.list service request.
func (m *HistoryModule) listMessages(_ context.Context, _ ListMessagesRequest, _ *mono.Msg) (ListMessagesResponse, error) {
	messages, err := m.repo.ListAll()
	if err != nil {
		return ListMessagesResponse{}, err
	}

	response := ListMessagesResponse{
		Messages: make([]MessageResponse, 0, len(messages)),
		Total:    len(messages),
	}

	for _, msg := range messages {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}

	return response, nil
}

// toMessageResponse converts a Message entity to a MessageResponse.
func toMessageResponse(msg *chat.Message) MessageResponse {
	return MessageResponse{
		ID:       msg.ID,
		Content:  msg.Content,
		Image:    msg.Image,
		Username: msg.Username,
	}
}
