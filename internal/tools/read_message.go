package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/email"
)

// ReadMessageTool retrieves one full message by UID.
type ReadMessageTool struct {
	service *email.Service
	logger  *logrus.Logger
}

// NewReadMessageTool creates a new read message tool.
func NewReadMessageTool(service *email.Service, logger *logrus.Logger) *ReadMessageTool {
	return &ReadMessageTool{
		service: service,
		logger:  logger,
	}
}

// Name returns the tool name.
func (t *ReadMessageTool) Name() string {
	return "read_message"
}

// Description returns the tool description.
func (t *ReadMessageTool) Description() string {
	return "Retrieve one message from an account's INBOX by UID, with headers, bodies and attachments"
}

// InputSchema returns the JSON schema for tool inputs.
func (t *ReadMessageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"accountName": map[string]interface{}{
				"type":        "string",
				"description": "Name of the configured account",
			},
			"id": map[string]interface{}{
				"type":        "integer",
				"description": "Message UID (from search results)",
			},
		},
		"required": []string{"accountName", "id"},
	}
}

// Execute executes the tool.
func (t *ReadMessageTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountName, _ := params["accountName"].(string)
	if accountName == "" {
		return nil, fmt.Errorf("accountName is required")
	}

	uid, err := parseUID(params["id"])
	if err != nil {
		return nil, err
	}

	msg, err := t.service.ReadMessage(ctx, accountName, uid)
	if err != nil {
		return nil, err
	}

	// Absence is a result, not an error: the UID may simply be gone.
	if msg == nil {
		return map[string]interface{}{
			"found": false,
			"id":    uid,
		}, nil
	}
	return msg, nil
}

func parseUID(raw interface{}) (uint32, error) {
	switch v := raw.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("id must be non-negative")
		}
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("id out of range")
		}
		return uint32(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid id: %w", err)
		}
		return uint32(id), nil
	default:
		return 0, fmt.Errorf("id is required")
	}
}
