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

// Package driver defines the pluggable device-driver capability. A driver
// translates structured operations into device-specific transport commands;
// the gateway never interprets driver internals beyond the error types
// declared here.
package driver

import (
	"context"

	"github.com/routekit/netgate/pkg/models"
)

//go:generate mockgen -destination=mock_driver.go -package=driver github.com/routekit/netgate/pkg/driver Driver,Conn

// Driver opens connections to devices of one platform family.
type Driver interface {
	// Open establishes a session to the device. The returned Conn is owned
	// by the calling dispatch and must be closed by it.
	Open(ctx context.Context, device *models.Device) (Conn, error)
}

// Conn is one open session to one device. Implementations do not need to
// be safe for concurrent use; every dispatch owns its own Conn.
type Conn interface {
	// Getter executes a named read-only query and returns the driver's raw
	// result shape. Unknown getters report ErrNotSupported.
	Getter(ctx context.Context, getter string, args map[string]interface{}) (interface{}, error)

	// CLI executes the ordered command list and returns output keyed by
	// command.
	CLI(ctx context.Context, commands []string) (map[string]string, error)

	// Configure merges the ordered config lines into the device
	// configuration and returns the resulting diff.
	Configure(ctx context.Context, lines []string) (string, error)

	// Close releases the session. Safe to call exactly once.
	Close() error
}
