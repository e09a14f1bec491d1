package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slideforge/internal/model"
)

// JSON-RPC 2.0 error codes used by the endpoint. -32001 is the
// implementation-defined code for authentication failures.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeUnauthorized   = -32001
)

const protocolVersion = "2024-11-05"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// AuthFunc resolves a plaintext API key to its record.
type AuthFunc func(ctx context.Context, plaintext string) (*model.APIKey, error)

// Handler serves the MCP tool endpoint over JSON-RPC 2.0.
type Handler struct {
	tools  map[string]toolDefinition
	auth   AuthFunc
	logger *zap.Logger
}

// NewHandler wires the MCP handler with its tool registry.
func NewHandler(auth AuthFunc, tools *Tools, logger *zap.Logger) *Handler {
	h := &Handler{
		auth:   auth,
		logger: logger.Named("MCPHandler"),
	}
	h.tools = tools.registry()
	return h
}

// RegisterRoutes mounts the endpoint. Only POST carries JSON-RPC traffic;
// other verbs get a 405 with a JSON-RPC error body so MCP clients can still
// parse the refusal.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/mcp", h.handlePost)
	for _, method := range []string{http.MethodGet, http.MethodDelete, http.MethodPut, http.MethodPatch} {
		router.Handle(method, "/api/mcp", h.handleMethodNotAllowed)
	}
}

func (h *Handler) handleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, rpcResponse{
		JSONRPC: "2.0",
		Error:   &rpcError{Code: codeInvalidRequest, Message: "method not allowed; use POST"},
	})
}

func (h *Handler) handlePost(c *gin.Context) {
	key, err := h.authenticate(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeUnauthorized, Message: "invalid or missing API key"},
		})
		return
	}
	c.Set("mcpUserID", key.UserID)

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "invalid JSON"},
		})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidRequest, Message: "not a JSON-RPC 2.0 request"},
		})
		return
	}

	switch req.Method {
	case "initialize":
		h.respond(c, req.ID, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]string{"name": "slideforge", "version": "1.0.0"},
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		})
	case "notifications/initialized", "ping":
		h.respond(c, req.ID, map[string]interface{}{})
	case "tools/list":
		h.respond(c, req.ID, map[string]interface{}{"tools": h.listTools()})
	case "tools/call":
		h.handleToolCall(c, req, key)
	default:
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method},
		})
	}
}

func (h *Handler) authenticate(c *gin.Context) (*model.APIKey, error) {
	header := c.GetHeader("Authorization")
	plaintext, found := strings.CutPrefix(header, "Bearer ")
	if !found || plaintext == "" {
		return nil, model.ErrAPIKeyInvalid
	}
	return h.auth(c.Request.Context(), plaintext)
}

func (h *Handler) handleToolCall(c *gin.Context, req rpcRequest, key *model.APIKey) {
	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidParams, Message: "tools/call requires a tool name"},
		})
		return
	}

	tool, ok := h.tools[params.Name]
	if !ok {
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInvalidParams, Message: "unknown tool: " + params.Name},
		})
		return
	}

	result, err := tool.handler(c.Request.Context(), key, params.Arguments)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) || errors.Is(err, model.ErrPromptTooLong) {
			c.JSON(http.StatusOK, rpcResponse{
				JSONRPC: "2.0", ID: req.ID,
				Error: &rpcError{Code: codeInvalidParams, Message: err.Error()},
			})
			return
		}
		h.logger.Error("Tool call failed",
			zap.String("tool", params.Name),
			zap.String("userID", key.UserID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, rpcResponse{
			JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: codeInternalError, Message: "internal error"},
		})
		return
	}

	h.respond(c, req.ID, result)
}

func (h *Handler) respond(c *gin.Context, id json.RawMessage, result interface{}) {
	c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (h *Handler) listTools() []toolDefinition {
	out := make([]toolDefinition, 0, len(h.tools))
	for _, name := range toolOrder {
		if tool, ok := h.tools[name]; ok {
			out = append(out, tool)
		}
	}
	return out
}
