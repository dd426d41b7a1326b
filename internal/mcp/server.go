package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/email"
	"github.com/brandon/mcp-mailbox/internal/tools"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "mcp-mailbox"

	// sessionHeader carries the session correlation key on every
	// request after initialize.
	sessionHeader = "Mcp-Session-Id"

	// Conversations idle past this are swept, matching clients that
	// disappear without sending DELETE.
	conversationIdleTimeout = 30 * time.Minute
	conversationSweepEvery  = time.Minute
)

// JSON-RPC error codes used by the router.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      interface{}            `json:"id"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}

// Server routes MCP requests over HTTP to per-client conversations.
// Each initialize request creates a conversation with its own bound
// tool registry; all later requests carry the session id and dispatch
// to that conversation.
type Server struct {
	service  *email.Service
	logger   *logrus.Logger
	sessions *SessionRegistry
	version  string
}

// NewServer creates a new MCP server instance.
func NewServer(service *email.Service, version string, logger *logrus.Logger) *Server {
	return &Server{
		service:  service,
		logger:   logger,
		sessions: NewSessionRegistry(),
		version:  version,
	}
}

// Handler returns the HTTP handler serving the MCP endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)
	return s.recoverPanics(mux)
}

// Run serves the MCP endpoint until the context is canceled.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	go s.sweepConversations(ctx)
	s.logger.WithField("port", port).Info("MCP server listening")

	select {
	case <-ctx.Done():
		s.sessions.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "invalid JSON-RPC request")
		return
	}

	// Only initialize may arrive without a session correlation key.
	if req.Method == "initialize" {
		s.handleInitialize(w, &req)
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	conv, ok := s.sessions.Get(sessionID)
	if sessionID == "" || !ok || conv.Closed() {
		s.writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unknown or missing session")
		return
	}
	conv.Touch()

	if strings.HasPrefix(req.Method, "notifications/") {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "ping":
		s.writeResult(w, req.ID, map[string]interface{}{})
	case "tools/list":
		s.writeResult(w, req.ID, map[string]interface{}{
			"tools": conv.Tools.GetToolDefinitions(),
		})
	case "tools/call":
		s.handleToolCall(w, r, conv, &req)
	default:
		s.writeError(w, http.StatusOK, req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, req *rpcRequest) {
	conv := s.sessions.Create(tools.NewRegistry(s.service, s.logger))
	conv.Activate()

	w.Header().Set(sessionHeader, conv.ID)
	s.writeResult(w, req.ID, map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": s.version,
		},
	})
	s.logger.WithField("session", conv.ID).Info("Conversation initialized")
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, conv *Conversation, req *rpcRequest) {
	toolName, _ := req.Params["name"].(string)
	arguments, _ := req.Params["arguments"].(map[string]interface{})

	tool, exists := conv.Tools.GetTool(toolName)
	if !exists {
		s.writeError(w, http.StatusOK, req.ID, codeMethodNotFound, fmt.Sprintf("Tool not found: %s", toolName))
		return
	}

	result, err := tool.Execute(r.Context(), arguments)

	// The conversation may have been torn down while the tool ran; a
	// result for a closed conversation is discarded, never delivered.
	if conv.Closed() || r.Context().Err() != nil {
		s.logger.WithFields(logrus.Fields{
			"session": conv.ID,
			"tool":    toolName,
		}).Debug("Discarding result for closed conversation")
		return
	}

	if err != nil {
		s.logger.WithError(err).WithField("tool", toolName).Warn("Tool execution failed")
		s.writeError(w, http.StatusOK, req.ID, codeInternalError, err.Error())
		return
	}

	// Results carry both the structured payload and a serialized text
	// form for clients that only render text.
	text, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		text = []byte(fmt.Sprintf("%v", result))
	}

	s.writeResult(w, req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": string(text)},
		},
		"structuredContent": result,
	})
}

func (s *Server) sweepConversations(ctx context.Context) {
	ticker := time.NewTicker(conversationSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(time.Now().Add(-conversationIdleTimeout)); n > 0 {
				s.logger.WithField("count", n).Debug("Swept idle conversations")
			}
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" || !s.sessions.Remove(sessionID) {
		s.writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "unknown or missing session")
		return
	}

	s.logger.WithField("session", sessionID).Info("Conversation terminated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithError(err).Error("Failed to encode error response")
	}
}

// recoverPanics converts an uncaught panic into a generic internal
// error response instead of leaking internals to the client.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithField("panic", rec).Error("Recovered from panic in handler")
				s.writeError(w, http.StatusInternalServerError, nil, codeInternalError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
