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

// Package gateway dispatches operations against inventory devices: it
// validates requested commands, resolves the device, executes through the
// driver layer, and normalizes every result or failure into the canonical
// TaskOutcome contract. No dispatch escapes this package as a raw error.
package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/inventory"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
	"github.com/routekit/netgate/pkg/policy"
)

const defaultDispatchTimeout = 60 * time.Second

// Config controls the dispatcher's worker pool and per-dispatch timeout.
type Config struct {
	Workers        int `json:"workers" yaml:"workers"`
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// Dispatcher is the gateway orchestrator. All fields are set at
// construction and read-only afterwards; the dispatcher is safe for
// concurrent use.
type Dispatcher struct {
	inventory  *inventory.Inventory
	policy     *policy.Blacklist
	conns      *ConnManager
	normalizer *Normalizer
	operations map[string]Handler
	pool       *Pool
	timeout    time.Duration
	logger     logger.Logger
}

// NewDispatcher wires the gateway together. The context object pattern
// keeps init and teardown explicit; nothing here lives in package state.
func NewDispatcher(
	cfg *Config,
	inv *inventory.Inventory,
	blacklist *policy.Blacklist,
	drivers driver.Registry,
	log logger.Logger,
) *Dispatcher {
	if cfg == nil {
		cfg = &Config{}
	}

	timeout := defaultDispatchTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	d := &Dispatcher{
		inventory:  inv,
		policy:     blacklist,
		conns:      NewConnManager(drivers, log),
		normalizer: NewNormalizer(log),
		operations: defaultOperations(),
		timeout:    timeout,
		logger:     log,
	}

	d.pool = NewPool(cfg.Workers, d.Dispatch)

	return d
}

// Close drains the worker pool.
func (d *Dispatcher) Close() {
	d.pool.Stop()
}

// Operations lists the operation kinds in the static dispatch table.
func (d *Dispatcher) Operations() []string {
	out := make([]string, 0, len(d.operations))
	for name := range d.operations {
		out = append(out, name)
	}

	return out
}

// Inventory exposes the resolver for boundary layers that list hosts.
func (d *Dispatcher) Inventory() *inventory.Inventory {
	return d.inventory
}

// Dispatch executes one operation against one device and always returns
// exactly one outcome. It never panics past this boundary: an unanticipated
// fault is caught and reported as InternalError.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.TaskRequest) (outcome models.TaskOutcome) {
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("device", req.DeviceName).
				Str("operation", req.Operation).
				Str("task_id", req.TaskID).
				Interface("panic", r).
				Msg("Dispatch panicked")

			outcome = models.FailureOutcome(req.DeviceName, models.ErrorTypeInternal,
				"Internal gateway fault while executing %q.", req.Operation)
		}
	}()

	d.logger.Debug().
		Str("device", req.DeviceName).
		Str("operation", req.Operation).
		Str("task_id", req.TaskID).
		Msg("Dispatching task")

	// Resolution and validation are cheap fast-fail paths; neither touches
	// the device.
	device, err := d.inventory.Resolve(req.DeviceName)
	if err != nil {
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeDeviceNotFound,
			"Device '%s' not found.", req.DeviceName)
	}

	if carriesCommandText(req.Operation) {
		if len(req.Commands) == 0 {
			return models.FailureOutcome(req.DeviceName, models.ErrorTypeCommandRejected,
				"No command supplied.")
		}

		if violation := d.policy.ValidateAll(req.Commands); violation != nil {
			d.logger.Warn().
				Str("device", req.DeviceName).
				Str("rule", violation.Rule).
				Str("match", violation.Match).
				Str("task_id", req.TaskID).
				Msg("Command rejected by blacklist policy")

			return models.FailureOutcome(req.DeviceName, models.ErrorTypeCommandRejected,
				"%s", violation.Message)
		}
	}

	handler, ok := d.operations[req.Operation]
	if !ok {
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeTaskExecution,
			"Unknown operation %q.", req.Operation)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	raw, err := d.conns.WithConnection(ctx, device, func(conn driver.Conn) (interface{}, error) {
		return handler.Run(ctx, conn, req)
	})

	outcome = d.normalizer.Normalize(req, raw, err)

	d.logger.Debug().
		Str("device", req.DeviceName).
		Str("task_id", req.TaskID).
		Bool("success", outcome.Success).
		Str("error_type", string(outcome.ErrorType)).
		Msg("Dispatch complete")

	return outcome
}

// Submit runs a dispatch on the worker pool. The returned channel receives
// exactly one outcome.
func (d *Dispatcher) Submit(ctx context.Context, req *models.TaskRequest) <-chan models.TaskOutcome {
	return d.pool.Submit(ctx, req)
}

// DispatchGroup fans one operation out to every device in the group as
// independent dispatches. One device's failure does not abort or alter any
// other device's dispatch; outcomes come back in group member order.
func (d *Dispatcher) DispatchGroup(ctx context.Context, group string, template *models.TaskRequest) []models.TaskOutcome {
	members := d.inventory.Members(group)
	results := make([]<-chan models.TaskOutcome, len(members))

	for i, device := range members {
		req := &models.TaskRequest{
			TaskID:     uuid.NewString(),
			DeviceName: device.Name,
			Operation:  template.Operation,
			Commands:   template.Commands,
			Args:       template.Args,
		}

		results[i] = d.Submit(ctx, req)
	}

	outcomes := make([]models.TaskOutcome, len(members))
	for i, ch := range results {
		outcomes[i] = <-ch
	}

	return outcomes
}
