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

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
)

// ConnManager owns connection acquisition and release for dispatches.
// Each dispatch gets its own connection and releases it before returning;
// connections are never pooled or shared across dispatches. A faulted
// connection left open has been observed to poison later calls to the same
// device, and closing other dispatches' connections mutates state they own.
type ConnManager struct {
	drivers driver.Registry
	logger  logger.Logger
}

// NewConnManager creates a connection lifecycle manager over the driver
// registry.
func NewConnManager(drivers driver.Registry, log logger.Logger) *ConnManager {
	return &ConnManager{
		drivers: drivers,
		logger:  log,
	}
}

// WithConnection opens a connection to the device, runs fn, and closes the
// connection on every exit path, including when fn panics.
func (m *ConnManager) WithConnection(
	ctx context.Context,
	device *models.Device,
	fn func(conn driver.Conn) (interface{}, error),
) (interface{}, error) {
	drv, err := m.drivers.Get(device.Platform)
	if err != nil {
		return nil, &driver.ConnectError{Target: device.Target(), Err: err}
	}

	conn, err := drv.Open(ctx, device)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn().Err(cerr).
				Str("device", device.Name).
				Msg("Failed to close device connection")
		}
	}()

	return fn(conn)
}
