package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// HistoryPort defines the interface for message log access from other modules.
type HistoryPort interface {
	ListMessages(ctx context.Context) ([]MessageResponse, error)
	AppendMessage(ctx context.Context, req AppendMessageRequest) (uint, error)
}

// historyAdapter wraps ServiceContainer for type-safe cross-module communication.
type historyAdapter struct {
	container mono.ServiceContainer
}

// NewHistoryAdapter creates a new adapter for history services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewHistoryAdapter(container mono.ServiceContainer) HistoryPort {
	if container == nil {
		panic("history adapter requires non-nil ServiceContainer")
	}
	return &historyAdapter{container: container}
}

// ListMessages retrieves the full message log via the list service.
func (a *historyAdapter) ListMessages(ctx context.Context) ([]MessageResponse, error) {
	req := ListMessagesRequest{}
	var resp ListMessagesResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list service call failed: %w", err)
	}

	return resp.Messages, nil
}

// AppendMessage persists one message via the append service.
func (a *historyAdapter) AppendMessage(ctx context.Context, req AppendMessageRequest) (uint, error) {
	var resp AppendMessageResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"append",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return 0, fmt.Errorf("append service call failed: %w", err)
	}

	return resp.ID, nil
}
