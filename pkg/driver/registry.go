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

package driver

import (
	"fmt"
)

var errNoDriver = fmt.Errorf("no driver registered for platform")

// Registry maps inventory platform identifiers to drivers. Populated once
// at startup, read-only afterwards.
type Registry interface {
	Register(platform string, drv Driver)
	Get(platform string) (Driver, error)
	Platforms() []string
}

type driverRegistry struct {
	drivers map[string]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() Registry {
	return &driverRegistry{
		drivers: make(map[string]Driver),
	}
}

// Register adds a driver for a platform identifier.
func (r *driverRegistry) Register(platform string, drv Driver) {
	r.drivers[platform] = drv
}

// Get retrieves the driver for the given platform.
func (r *driverRegistry) Get(platform string) (Driver, error) {
	drv, ok := r.drivers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errNoDriver, platform)
	}

	return drv, nil
}

// Platforms lists the registered platform identifiers.
func (r *driverRegistry) Platforms() []string {
	out := make([]string, 0, len(r.drivers))
	for platform := range r.drivers {
		out = append(out, platform)
	}

	return out
}
