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

// Package server assembles and runs the gateway service: inventory, policy,
// drivers, dispatcher, and the HTTP/MCP boundary.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/driver/snmpdrv"
	"github.com/routekit/netgate/pkg/gateway"
	"github.com/routekit/netgate/pkg/inventory"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/mcp"
	"github.com/routekit/netgate/pkg/models"
	"github.com/routekit/netgate/pkg/policy"
)

const (
	defaultListenAddr      = ":8090"
	defaultShutdownTimeout = 10 * time.Second
)

var errInventoryRequired = errors.New("inventory.hosts_file is required")

// Config is the service configuration file shape.
type Config struct {
	ListenAddr string           `json:"listen_addr" yaml:"listen_addr"`
	Inventory  inventory.Config `json:"inventory" yaml:"inventory"`
	PolicyFile string           `json:"policy_file" yaml:"policy_file"`
	Gateway    gateway.Config   `json:"gateway" yaml:"gateway"`
	MCP        mcp.Config       `json:"mcp" yaml:"mcp"`

	// SNMPTimeoutSeconds bounds each SNMP request; zero uses the driver
	// default.
	SNMPTimeoutSeconds int `json:"snmp_timeout_seconds" yaml:"snmp_timeout_seconds"`

	Logging *logger.Config `json:"logging" yaml:"logging"`
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	if c.Inventory.HostsFile == "" {
		return errInventoryRequired
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	return nil
}

// Server is the assembled gateway service.
type Server struct {
	config     *Config
	dispatcher *gateway.Dispatcher
	mcpServer  *mcp.Server
	httpServer *http.Server
	logger     logger.Logger
}

// NewServer loads the inventory and policy, registers drivers, and wires
// the dispatcher and MCP boundary. Policy load failure is not fatal: the
// gateway runs with an empty blacklist and logs the degradation.
func NewServer(ctx context.Context, cfg *Config, log logger.Logger) (*Server, error) {
	inv, err := inventory.Load(&cfg.Inventory, log)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("devices", inv.Len()).
		Msg("Inventory loaded")

	blacklist := policy.LoadFile(cfg.PolicyFile, log)

	drivers := driver.NewRegistry()
	drivers.Register("snmp", snmpdrv.New(time.Duration(cfg.SNMPTimeoutSeconds)*time.Second, log))

	dispatcher := gateway.NewDispatcher(&cfg.Gateway, inv, blacklist, drivers, log)

	s := &Server{
		config:     cfg,
		dispatcher: dispatcher,
		mcpServer:  mcp.NewServer(ctx, dispatcher, log, &cfg.MCP),
		logger:     log,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().
			Str("addr", s.config.ListenAddr).
			Msg("Gateway listening")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop drains in-flight dispatches and closes the HTTP listener.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Shutting down gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	_ = s.mcpServer.Stop()
	s.dispatcher.Close()

	return err
}

// Dispatcher exposes the gateway for tests and embedding callers.
func (s *Server) Dispatcher() *gateway.Dispatcher {
	return s.dispatcher
}

// Router builds the HTTP route table. Also used by tests that serve
// through httptest instead of a listener.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/tasks", s.handleTask).Methods("POST")
	s.mcpServer.RegisterRoutes(router)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	payload := map[string]interface{}{
		"status":  "ok",
		"devices": s.dispatcher.Inventory().Len(),
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode health response")
	}
}

// handleTask is the plain JSON task endpoint: one request, one outcome.
// Malformed bodies get a 400; everything past decoding is a TaskOutcome.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.TaskRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		if encErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encErr != nil {
			s.logger.Error().Err(encErr).Msg("Failed to encode error response")
		}

		return
	}

	outcome := s.dispatcher.Dispatch(r.Context(), &req)

	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode task outcome")
	}
}
