/*
 * Copyright 2025 Routekit, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mcp exposes the gateway over the Model Context Protocol: a single
// JSON-RPC 2.0 endpoint carrying initialize, tools/list, tools/call,
// resources/list and resources/read, plus an SSE heartbeat stream.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/routekit/netgate/pkg/gateway"
	"github.com/routekit/netgate/pkg/logger"
)

const (
	protocolVersion = "2025-03-26"
	serverName      = "netgate-mcp"
	serverVersion   = "1.0.0"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Config holds the MCP serving options.
type Config struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// APIKey, when set, is required on every request as X-API-Key or a
	// bearer token.
	APIKey string `json:"api_key" yaml:"api_key"`

	// HeartbeatSeconds is the SSE heartbeat interval; zero means 30s.
	HeartbeatSeconds int `json:"heartbeat_seconds" yaml:"heartbeat_seconds"`
}

// Server handles the MCP protocol over HTTP.
type Server struct {
	dispatcher *gateway.Dispatcher
	logger     logger.Logger
	config     *Config
	tools      map[string]tool
	prompts    map[string]prompt
	ctx        context.Context
	cancel     context.CancelFunc
}

// JSON-RPC 2.0 structures

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Tool is the wire form of a tool definition.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NewServer creates the MCP server over a dispatcher.
func NewServer(parentCtx context.Context, dispatcher *gateway.Dispatcher, log logger.Logger, config *Config) *Server {
	ctx, cancel := context.WithCancel(parentCtx)

	s := &Server{
		dispatcher: dispatcher,
		logger:     log,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
	}

	s.tools = s.buildTools()
	s.prompts = s.buildPrompts()

	return s
}

// RegisterRoutes adds the MCP endpoints to the router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	if s.config == nil || !s.config.Enabled {
		s.logger.Info().Msg("MCP server disabled - skipping route registration")

		return
	}

	mcpRouter := router.PathPrefix("/mcp").Subrouter()
	mcpRouter.Use(s.authMiddleware)
	mcpRouter.HandleFunc("", s.handleRequest).Methods("POST", "OPTIONS")
	mcpRouter.HandleFunc("/", s.handleRequest).Methods("POST", "OPTIONS")
	mcpRouter.HandleFunc("/events", s.handleEvents).Methods("GET")
}

// Stop cancels in-flight streams.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping MCP server")
	s.cancel()

	return nil
}

// authMiddleware enforces the configured API key. Preflight requests pass
// through so browser clients can negotiate CORS before authenticating.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)

			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				key = parts[1]
			}
		}

		if key != s.config.APIKey {
			s.logger.Warn().
				Str("remote", r.RemoteAddr).
				Msg("Rejected MCP request with missing or invalid API key")

			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleRequest handles all MCP JSON-RPC requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)

		return
	}

	var req JSONRPCRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, req.ID, codeParseError, "Parse error", err.Error())

		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req)
	case "tools/list":
		s.handleToolsList(w, req)
	case "tools/call":
		s.handleToolCall(w, req, r)
	case "resources/list":
		s.handleResourcesList(w, req)
	case "resources/read":
		s.handleResourcesRead(w, req)
	case "prompts/list":
		s.handlePromptsList(w, req)
	case "prompts/get":
		s.handlePromptsGet(w, req)
	default:
		s.writeError(w, req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, req JSONRPCRequest) {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
			"prompts":   map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": serverVersion,
		},
	}

	s.writeSuccess(w, req.ID, result)
}

func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest) {
	s.writeSuccess(w, req.ID, map[string]interface{}{
		"tools": s.toolDefinitions(),
	})
}

func (s *Server) handleToolCall(w http.ResponseWriter, req JSONRPCRequest, r *http.Request) {
	var params toolCallParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Invalid params", err.Error())

		return
	}

	t, ok := s.tools[params.Name]
	if !ok {
		s.writeError(w, req.ID, codeInvalidParams, "Unknown tool", fmt.Sprintf("Tool not found: %s", params.Name))

		return
	}

	s.logger.Debug().
		Str("tool", params.Name).
		Msg("Executing MCP tool")

	result, err := t.handler(r.Context(), params.Arguments)
	if err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Invalid arguments", err.Error())

		return
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "Internal error", "Failed to marshal result")

		return
	}

	s.writeSuccess(w, req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(resultJSON),
			},
		},
	})
}

func (s *Server) writeSuccess(w http.ResponseWriter, id, result interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	response := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP error response")
	}
}
