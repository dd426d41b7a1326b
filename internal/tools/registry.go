package tools

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/email"
)

// Tool is one callable MCP operation.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// Registry holds the tools bound to one conversation.
type Registry struct {
	service *email.Service
	logger  *logrus.Logger
	tools   map[string]Tool
}

// NewRegistry creates a registry with all tools registered.
func NewRegistry(service *email.Service, logger *logrus.Logger) *Registry {
	reg := &Registry{
		service: service,
		logger:  logger,
		tools:   make(map[string]Tool),
	}
	reg.registerTools()
	return reg
}

func (r *Registry) registerTools() {
	toolList := []Tool{
		NewListAccountsTool(r.service, r.logger),
		NewSearchMessagesTool(r.service, r.logger),
		NewReadMessageTool(r.service, r.logger),
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}
}

// GetTool returns a tool by name.
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// GetToolDefinitions returns tool definitions for tools/list.
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	definitions := make([]map[string]interface{}, 0, len(r.tools))
	for _, tool := range r.tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}
