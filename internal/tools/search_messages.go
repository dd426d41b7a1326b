package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/email"
)

// SearchMessagesTool searches an account's INBOX over IMAP.
type SearchMessagesTool struct {
	service *email.Service
	logger  *logrus.Logger
}

// NewSearchMessagesTool creates a new search messages tool.
func NewSearchMessagesTool(service *email.Service, logger *logrus.Logger) *SearchMessagesTool {
	return &SearchMessagesTool{
		service: service,
		logger:  logger,
	}
}

// Name returns the tool name.
func (t *SearchMessagesTool) Name() string {
	return "search_messages"
}

// Description returns the tool description.
func (t *SearchMessagesTool) Description() string {
	return "Search messages in an account's INBOX; searchQuery is a free-text phrase or a structured predicate set"
}

// InputSchema returns the JSON schema for tool inputs.
func (t *SearchMessagesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"accountName": map[string]interface{}{
				"type":        "string",
				"description": "Name of the configured account to search",
			},
			"searchQuery": map[string]interface{}{
				"description": "Free-text phrase, or an object with keyword, excludeKeyword, since, before, subject, body, from, to, cc, bcc",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: keep only the first N matches before sorting",
				"minimum":     1,
			},
		},
		"required": []string{"accountName"},
	}
}

// Execute executes the tool.
func (t *SearchMessagesTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	accountName, _ := params["accountName"].(string)
	if accountName == "" {
		return nil, fmt.Errorf("accountName is required")
	}

	query, err := parseSearchQuery(params["searchQuery"])
	if err != nil {
		return nil, err
	}

	limit := 0
	if v, ok := params["limit"].(float64); ok {
		limit = int(v)
	}

	results, err := t.service.SearchMessages(ctx, accountName, query, limit)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"results": results,
	}, nil
}

// parseSearchQuery accepts either the free-text form (a plain string)
// or the structured predicate object.
func parseSearchQuery(raw interface{}) (email.SearchQuery, error) {
	switch v := raw.(type) {
	case nil:
		return email.SearchQuery{}, nil
	case string:
		return email.SearchQuery{Text: v}, nil
	case map[string]interface{}:
		q := email.SearchQuery{}
		q.Keyword, _ = v["keyword"].(string)
		q.ExcludeKeyword, _ = v["excludeKeyword"].(string)
		q.Subject, _ = v["subject"].(string)
		q.Body, _ = v["body"].(string)
		q.From, _ = v["from"].(string)
		q.To, _ = v["to"].(string)
		q.Cc, _ = v["cc"].(string)
		q.Bcc, _ = v["bcc"].(string)

		if s, ok := v["since"].(string); ok && s != "" {
			since, err := parseDate(s)
			if err != nil {
				return q, fmt.Errorf("invalid since date: %w", err)
			}
			q.Since = since
		}
		if s, ok := v["before"].(string); ok && s != "" {
			before, err := parseDate(s)
			if err != nil {
				return q, fmt.Errorf("invalid before date: %w", err)
			}
			q.Before = before
		}
		return q, nil
	default:
		return email.SearchQuery{}, fmt.Errorf("searchQuery must be a string or an object")
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
