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

package gateway

import (
	"context"
	"errors"
	"net"

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
)

// Normalizer reduces the documented driver result shapes to the canonical
// outcome contract. Normalization is deterministic and total: every
// documented shape maps to exactly one outcome, anything else is a
// FormatError, never a crash.
type Normalizer struct {
	logger logger.Logger
}

// NewNormalizer creates a result normalizer.
func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{logger: log}
}

// Normalize converts a raw driver result or failure into a TaskOutcome.
func (n *Normalizer) Normalize(req *models.TaskRequest, raw interface{}, err error) models.TaskOutcome {
	if err != nil {
		return n.classifyFailure(req, err)
	}

	switch result := raw.(type) {
	case nil:
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeEmptyResult,
			"Device returned no result for operation %q.", req.Operation)

	case string:
		if result == "" {
			return models.FailureOutcome(req.DeviceName, models.ErrorTypeEmptyResult,
				"Device returned an empty result for operation %q.", req.Operation)
		}

		return models.SuccessOutcome(req.DeviceName, result)

	case map[string]string:
		return n.normalizeCommandOutput(req, result)

	case map[string]interface{}:
		if len(result) == 0 {
			return models.FailureOutcome(req.DeviceName, models.ErrorTypeEmptyResult,
				"Device returned an empty result for operation %q.", req.Operation)
		}

		return models.SuccessOutcome(req.DeviceName, result)

	case []interface{}:
		if len(result) == 0 {
			return models.FailureOutcome(req.DeviceName, models.ErrorTypeEmptyResult,
				"Device returned an empty result for operation %q.", req.Operation)
		}

		return models.SuccessOutcome(req.DeviceName, result)

	default:
		n.logger.Error().
			Str("device", req.DeviceName).
			Str("operation", req.Operation).
			Str("task_id", req.TaskID).
			Type("shape", raw).
			Msg("Driver returned an undocumented result shape")

		return models.FailureOutcome(req.DeviceName, models.ErrorTypeFormat,
			"Driver returned an uninterpretable result shape (%T).", raw)
	}
}

// normalizeCommandOutput reconciles the single/multi command shape
// difference: one command yields that command's scalar output, several
// commands yield the command→output mapping.
func (n *Normalizer) normalizeCommandOutput(req *models.TaskRequest, output map[string]string) models.TaskOutcome {
	if len(output) == 0 {
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeEmptyResult,
			"Device returned no output for the command batch.")
	}

	if len(req.Commands) == 1 {
		if scalar, ok := output[req.Commands[0]]; ok {
			return models.SuccessOutcome(req.DeviceName, scalar)
		}

		// A single-command dispatch with a single aggregate entry keyed
		// differently still has an unambiguous scalar.
		if len(output) == 1 {
			for _, scalar := range output {
				return models.SuccessOutcome(req.DeviceName, scalar)
			}
		}

		n.logger.Error().
			Str("device", req.DeviceName).
			Str("task_id", req.TaskID).
			Msg("Driver output does not match the dispatched command")

		return models.FailureOutcome(req.DeviceName, models.ErrorTypeFormat,
			"Driver output does not match the dispatched command.")
	}

	return models.SuccessOutcome(req.DeviceName, output)
}

// classifyFailure maps a driver failure to the error taxonomy. The
// dispatcher only distinguishes "returned" from "raised"; interpreting the
// failure is this function's job.
func (n *Normalizer) classifyFailure(req *models.TaskRequest, err error) models.TaskOutcome {
	var connErr *driver.ConnectError

	if errors.As(err, &connErr) {
		if isTimeout(err) {
			return models.FailureOutcome(req.DeviceName, models.ErrorTypeConnection,
				"Connection to %s timed out: %v", connErr.Target, connErr.Err)
		}

		return models.FailureOutcome(req.DeviceName, models.ErrorTypeConnection, "%v", connErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeConnection,
			"Operation %q timed out: %v", req.Operation, err)
	}

	if errors.Is(err, driver.ErrNotSupported) {
		// The device is fine; the capability just is not implemented.
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeTaskExecution,
			"Not implemented: %v", err)
	}

	var execErr *driver.ExecError

	if errors.As(err, &execErr) {
		return models.FailureOutcome(req.DeviceName, models.ErrorTypeTaskExecution, "%v", execErr)
	}

	return models.FailureOutcome(req.DeviceName, models.ErrorTypeTaskExecution, "%v", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
