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

// Package inventory loads the device inventory from YAML files and resolves
// logical device names to device descriptors. The inventory is immutable
// after load and safe for concurrent readers.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
)

var (
	// ErrDeviceNotFound is returned by Resolve for names absent from the
	// inventory. A frequent, non-fatal condition: callers guess names.
	ErrDeviceNotFound = errors.New("device not found")

	errHostsFileRequired = errors.New("inventory hosts file is required")
)

// Config points at the inventory source files. Groups and defaults are
// optional; hosts are required.
type Config struct {
	HostsFile    string `json:"hosts_file" yaml:"hosts_file"`
	GroupsFile   string `json:"groups_file" yaml:"groups_file"`
	DefaultsFile string `json:"defaults_file" yaml:"defaults_file"`
}

// hostEntry mirrors one host or group stanza in the inventory YAML.
type hostEntry struct {
	Hostname string                 `yaml:"hostname"`
	Platform string                 `yaml:"platform"`
	Port     int                    `yaml:"port"`
	Username string                 `yaml:"username"`
	Password string                 `yaml:"password"`
	Secret   string                 `yaml:"secret"`
	Groups   []string               `yaml:"groups"`
	Data     map[string]interface{} `yaml:"data"`
}

// Inventory holds the loaded device set. Never mutated after Load.
type Inventory struct {
	devices map[string]*models.Device
	names   []string
	groups  []string
	logger  logger.Logger
}

// Load reads the host, group, and defaults files and builds the inventory.
// Host values win over group values, groups win over defaults; groups are
// applied in the order the host lists them.
func Load(cfg *Config, log logger.Logger) (*Inventory, error) {
	if cfg == nil || cfg.HostsFile == "" {
		return nil, errHostsFileRequired
	}

	hosts, err := readEntries(cfg.HostsFile, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load hosts: %w", err)
	}

	groups, err := readEntries(cfg.GroupsFile, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	defaults, err := readDefaults(cfg.DefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	inv := &Inventory{
		devices: make(map[string]*models.Device, len(hosts)),
		logger:  log,
	}

	for name, host := range hosts {
		device, err := buildDevice(name, host, groups, defaults)
		if err != nil {
			return nil, err
		}

		inv.devices[name] = device
		inv.names = append(inv.names, name)
	}

	sort.Strings(inv.names)

	for name := range groups {
		inv.groups = append(inv.groups, name)
	}

	sort.Strings(inv.groups)

	log.Info().
		Int("hosts", len(inv.devices)).
		Int("groups", len(inv.groups)).
		Msg("Inventory loaded")

	return inv, nil
}

// Resolve looks up a device by exact logical name.
func (i *Inventory) Resolve(name string) (*models.Device, error) {
	device, ok := i.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	return device, nil
}

// ByHostname finds the device whose network address matches addr.
func (i *Inventory) ByHostname(addr string) (*models.Device, bool) {
	for _, name := range i.names {
		if i.devices[name].Hostname == addr {
			return i.devices[name], true
		}
	}

	return nil, false
}

// Info returns the sanitized summary of one device by logical name.
func (i *Inventory) Info(name string) (HostInfo, bool) {
	device, ok := i.devices[name]
	if !ok {
		return HostInfo{}, false
	}

	return summarize(device), true
}

// List returns summaries of all devices, optionally filtered by group.
// Summaries are sanitized: no credential material crosses this boundary.
func (i *Inventory) List(group string) []HostInfo {
	out := make([]HostInfo, 0, len(i.names))

	for _, name := range i.names {
		device := i.devices[name]
		if group != "" && !device.HasGroup(group) {
			continue
		}

		out = append(out, summarize(device))
	}

	return out
}

// GroupNames returns the names of all defined groups, sorted.
func (i *Inventory) GroupNames() []string {
	out := make([]string, len(i.groups))
	copy(out, i.groups)

	return out
}

// Members returns the devices belonging to the named group, in name order.
func (i *Inventory) Members(group string) []*models.Device {
	var out []*models.Device

	for _, name := range i.names {
		if i.devices[name].HasGroup(group) {
			out = append(out, i.devices[name])
		}
	}

	return out
}

// Len reports the number of devices in the inventory.
func (i *Inventory) Len() int {
	return len(i.devices)
}

func readEntries(path string, required bool) (map[string]hostEntry, error) {
	if path == "" {
		if required {
			return nil, errHostsFileRequired
		}

		return map[string]hostEntry{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return map[string]hostEntry{}, nil
		}

		return nil, err
	}

	entries := make(map[string]hostEntry)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed inventory file '%s': %w", path, err)
	}

	return entries, nil
}

func readDefaults(path string) (hostEntry, error) {
	if path == "" {
		return hostEntry{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hostEntry{}, nil
		}

		return hostEntry{}, err
	}

	var defaults hostEntry
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return hostEntry{}, fmt.Errorf("malformed defaults file '%s': %w", path, err)
	}

	return defaults, nil
}

// buildDevice merges a host entry with its groups and the defaults.
func buildDevice(name string, host hostEntry, groups map[string]hostEntry, defaults hostEntry) (*models.Device, error) {
	merged := host

	for _, groupName := range host.Groups {
		group, ok := groups[groupName]
		if !ok {
			return nil, fmt.Errorf("host '%s' references undefined group '%s'", name, groupName)
		}

		mergeEntry(&merged, group)
	}

	mergeEntry(&merged, defaults)

	if merged.Hostname == "" {
		merged.Hostname = name
	}

	return &models.Device{
		Name:     name,
		Hostname: merged.Hostname,
		Platform: merged.Platform,
		Port:     merged.Port,
		Groups:   append([]string(nil), host.Groups...),
		Username: merged.Username,
		Password: merged.Password,
		Secret:   merged.Secret,
		Data:     merged.Data,
	}, nil
}

// mergeEntry fills empty fields of dst from src. Data keys already present
// on dst are kept.
func mergeEntry(dst *hostEntry, src hostEntry) {
	if dst.Hostname == "" {
		dst.Hostname = src.Hostname
	}

	if dst.Platform == "" {
		dst.Platform = src.Platform
	}

	if dst.Port == 0 {
		dst.Port = src.Port
	}

	if dst.Username == "" {
		dst.Username = src.Username
	}

	if dst.Password == "" {
		dst.Password = src.Password
	}

	if dst.Secret == "" {
		dst.Secret = src.Secret
	}

	for key, value := range src.Data {
		if dst.Data == nil {
			dst.Data = make(map[string]interface{})
		}

		if _, ok := dst.Data[key]; !ok {
			dst.Data[key] = value
		}
	}
}
