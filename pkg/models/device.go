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

// Package models contains the shared types exchanged between the inventory,
// the gateway, and the device drivers.
package models

// Device describes one inventory entry. Devices are immutable after
// inventory load; consumers hold references and never mutate them.
type Device struct {
	Name     string `json:"name" yaml:"-"`
	Hostname string `json:"hostname" yaml:"hostname"`
	Platform string `json:"platform" yaml:"platform"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`

	Groups []string `json:"groups" yaml:"groups"`

	Username string `json:"-" yaml:"username"`
	Password string `json:"-" yaml:"password"`
	Secret   string `json:"-" yaml:"secret"`

	// Data carries platform- and transport-specific connection options
	// (e.g. SNMP community, transport timeouts). Opaque to the gateway,
	// interpreted by the driver for the device's platform.
	Data map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// HasGroup reports whether the device belongs to the named group.
func (d *Device) HasGroup(group string) bool {
	for _, g := range d.Groups {
		if g == group {
			return true
		}
	}

	return false
}

// Target returns the address the driver should connect to.
func (d *Device) Target() string {
	return d.Hostname
}
