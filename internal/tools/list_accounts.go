package tools

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/email"
)

// ListAccountsTool lists the configured mailbox accounts.
type ListAccountsTool struct {
	service *email.Service
	logger  *logrus.Logger
}

// NewListAccountsTool creates a new list accounts tool.
func NewListAccountsTool(service *email.Service, logger *logrus.Logger) *ListAccountsTool {
	return &ListAccountsTool{
		service: service,
		logger:  logger,
	}
}

// Name returns the tool name.
func (t *ListAccountsTool) Name() string {
	return "list_accounts"
}

// Description returns the tool description.
func (t *ListAccountsTool) Description() string {
	return "List configured mailbox accounts with their name, description and IMAP username"
}

// InputSchema returns the JSON schema for tool inputs.
func (t *ListAccountsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool.
func (t *ListAccountsTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"accounts": t.service.ListAccounts(),
	}, nil
}
