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

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/routekit/netgate/pkg/gateway"
	"github.com/routekit/netgate/pkg/models"
)

// tool binds a wire definition to its handler.
type tool struct {
	def     Tool
	handler func(ctx context.Context, args json.RawMessage) (interface{}, error)
}

// getterTools describes the read-only query surface. Tool name, the getter
// it dispatches, and any parameters beyond the mandatory host.
var getterTools = []struct {
	name        string
	getter      string
	description string
	params      map[string]property
}{
	{"get_facts", "facts", "Get basic device facts: vendor, model, OS version, serial, uptime", nil},
	{"get_vlans", "vlans", "Get the VLAN table", nil},
	{"get_users", "users", "Get locally configured users", nil},
	{"get_arp_table", "arp_table", "Get the ARP table", nil},
	{"get_bgp_neighbors", "bgp_neighbors", "Get BGP neighbor summary state", nil},
	{"get_interfaces", "interfaces", "Get interface operational state", nil},
	{"get_interfaces_counters", "interfaces_counters", "Get interface traffic and error counters", nil},
	{"get_interfaces_ip", "interfaces_ip", "Get IP addresses configured on interfaces", nil},
	{"get_mac_address_table", "mac_address_table", "Get the MAC address table", nil},
	{"get_snmp_information", "snmp_information", "Get SNMP configuration: contact, location, community metadata", nil},
	{"get_environment", "environment", "Get environmental state: fans, temperature, power, CPU, memory", nil},
	{"get_ipv6_neighbors_table", "ipv6_neighbors_table", "Get the IPv6 neighbor table", nil},
	{"get_lldp_neighbors", "lldp_neighbors", "Get LLDP neighbor summary per interface", nil},
	{"get_ntp_peers", "ntp_peers", "Get configured NTP peers", nil},
	{"get_ntp_servers", "ntp_servers", "Get configured NTP servers", nil},
	{"get_ntp_stats", "ntp_stats", "Get NTP synchronization statistics", nil},
	{"get_optics", "optics", "Get transceiver optical power readings", nil},
	{"get_probes_config", "probes_config", "Get configured RPM/SLA probes", nil},
	{"is_alive", "is_alive", "Check whether the device management session is alive", nil},
	{
		"get_config", "config",
		"Retrieve device configuration",
		map[string]property{
			"retrieve": {"string", "Which store to retrieve: running, startup or candidate"},
		},
	},
	{
		"get_bgp_config", "bgp_config",
		"Get BGP configuration, optionally scoped to a group or neighbor",
		map[string]property{
			"group":    {"string", "Limit output to one BGP group"},
			"neighbor": {"string", "Limit output to one neighbor address"},
		},
	},
	{
		"get_bgp_neighbors_detail", "bgp_neighbors_detail",
		"Get detailed BGP neighbor state",
		map[string]property{
			"neighbor_address": {"string", "Limit output to one neighbor address"},
		},
	},
	{
		"get_lldp_neighbors_detail", "lldp_neighbors_detail",
		"Get detailed LLDP neighbor state",
		map[string]property{
			"interface": {"string", "Limit output to one interface"},
		},
	},
	{
		"get_network_instances", "network_instances",
		"Get VRF/network instance state",
		map[string]property{
			"name": {"string", "Limit output to one instance"},
		},
	},
	{
		"ping", "ping",
		"Ping a destination from the device",
		map[string]property{
			"destination": {"string", "Destination host or address (required)"},
			"source":      {"string", "Source address or interface"},
			"ttl":         {"integer", "Max hops"},
			"timeout":     {"integer", "Per-probe timeout in seconds"},
			"size":        {"integer", "Probe payload size in bytes"},
			"count":       {"integer", "Number of probes"},
			"vrf":         {"string", "VRF to ping in"},
		},
	},
	{
		"traceroute", "traceroute",
		"Trace the route to a destination from the device",
		map[string]property{
			"destination": {"string", "Destination host or address (required)"},
			"source":      {"string", "Source address"},
			"ttl":         {"integer", "Max hops"},
			"timeout":     {"integer", "Per-probe timeout in seconds"},
			"vrf":         {"string", "VRF to trace in"},
		},
	},
}

type property struct {
	typ         string
	description string
}

// buildTools assembles the full tool table: one tool per getter plus the
// imperative and inventory tools.
func (s *Server) buildTools() map[string]tool {
	tools := make(map[string]tool)

	for _, g := range getterTools {
		getter := g.getter
		tools[g.name] = tool{
			def:     Tool{Name: g.name, Description: g.description, InputSchema: hostSchema(g.params)},
			handler: s.getterTool(getter),
		}
	}

	tools["send_command"] = tool{
		def: Tool{
			Name:        "send_command",
			Description: "Run one or more show commands on a device; commands are screened against the blacklist policy",
			InputSchema: schema(map[string]property{
				"host":     {"string", "Inventory name of the device"},
				"command":  {"string", "A single command to run"},
				"commands": {"array", "An ordered list of commands to run"},
			}, []string{"host"}),
		},
		handler: s.sendCommandTool,
	}

	tools["send_config"] = tool{
		def: Tool{
			Name:        "send_config",
			Description: "Merge configuration lines into the device and return the resulting diff; lines are screened against the blacklist policy",
			InputSchema: schema(map[string]property{
				"host":   {"string", "Inventory name of the device"},
				"config": {"array", "Ordered configuration lines to merge"},
			}, []string{"host", "config"}),
		},
		handler: s.sendConfigTool,
	}

	tools["list_all_hosts"] = tool{
		def: Tool{
			Name:        "list_all_hosts",
			Description: "List inventory hosts with sanitized attributes, optionally filtered by group",
			InputSchema: schema(map[string]property{
				"group": {"string", "Only list members of this group"},
			}, nil),
		},
		handler: s.listHostsTool,
	}

	tools["get_host_info"] = tool{
		def: Tool{
			Name:        "get_host_info",
			Description: "Get the sanitized inventory record of one host, by inventory name or by network address",
			InputSchema: schema(map[string]property{
				"host":     {"string", "Inventory name of the device"},
				"hostname": {"string", "Network address of the device, when the name is unknown"},
			}, nil),
		},
		handler: s.hostInfoTool,
	}

	tools["sweep_group"] = tool{
		def: Tool{
			Name:        "sweep_group",
			Description: "Run one getter or command batch across every device in a group; per-device failures are isolated",
			InputSchema: schema(map[string]property{
				"group":    {"string", "Inventory group to sweep"},
				"getter":   {"string", "Getter to run on each member (default facts)"},
				"commands": {"array", "Commands to run instead of a getter"},
			}, []string{"group"}),
		},
		handler: s.sweepGroupTool,
	}

	return tools
}

// toolDefinitions lists the wire definitions in stable name order.
func (s *Server) toolDefinitions() []Tool {
	defs := make([]Tool, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, t.def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	return defs
}

func hostSchema(params map[string]property) interface{} {
	props := map[string]property{
		"host": {"string", "Inventory name of the device"},
	}

	for name, p := range params {
		props[name] = p
	}

	return schema(props, []string{"host"})
}

func schema(props map[string]property, required []string) interface{} {
	properties := make(map[string]interface{}, len(props))

	for name, p := range props {
		properties[name] = map[string]interface{}{
			"type":        p.typ,
			"description": p.description,
		}
	}

	out := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		out["required"] = required
	}

	return out
}

// getterTool dispatches one named getter. Every argument besides host is
// forwarded to the driver as a getter parameter.
func (s *Server) getterTool(getter string) func(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		host, rest, err := decodeHostArgs(args)
		if err != nil {
			return nil, err
		}

		outcome := s.dispatcher.Dispatch(ctx, &models.TaskRequest{
			DeviceName: host,
			Operation:  gateway.GetterOperation(getter),
			Args:       rest,
		})

		return outcome, nil
	}
}

func (s *Server) sendCommandTool(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Host     string   `json:"host"`
		Command  string   `json:"command,omitempty"`
		Commands []string `json:"commands,omitempty"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	commands := params.Commands
	if len(commands) == 0 && params.Command != "" {
		commands = []string{params.Command}
	}

	outcome := s.dispatcher.Dispatch(ctx, &models.TaskRequest{
		DeviceName: params.Host,
		Operation:  gateway.OperationCommand,
		Commands:   commands,
	})

	return outcome, nil
}

func (s *Server) sendConfigTool(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Host   string   `json:"host"`
		Config []string `json:"config"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	outcome := s.dispatcher.Dispatch(ctx, &models.TaskRequest{
		DeviceName: params.Host,
		Operation:  gateway.OperationConfigure,
		Commands:   params.Config,
	})

	return outcome, nil
}

func (s *Server) listHostsTool(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Group string `json:"group,omitempty"`
	}

	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, err
		}
	}

	hosts := s.dispatcher.Inventory().List(params.Group)

	return map[string]interface{}{
		"hosts": hosts,
		"count": len(hosts),
	}, nil
}

// hostInfoTool looks a device up by inventory name, falling back to its
// network address when only that is known.
func (s *Server) hostInfoTool(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Host     string `json:"host,omitempty"`
		Hostname string `json:"hostname,omitempty"`
	}

	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, err
		}
	}

	inv := s.dispatcher.Inventory()

	switch {
	case params.Host != "":
		info, ok := inv.Info(params.Host)
		if !ok {
			return models.FailureOutcome(params.Host, models.ErrorTypeDeviceNotFound,
				"Device '%s' not found.", params.Host), nil
		}

		return info, nil

	case params.Hostname != "":
		device, ok := inv.ByHostname(params.Hostname)
		if !ok {
			return models.FailureOutcome(params.Hostname, models.ErrorTypeDeviceNotFound,
				"Device '%s' not found.", params.Hostname), nil
		}

		info, _ := inv.Info(device.Name)

		return info, nil

	default:
		return nil, fmt.Errorf("host or hostname is required")
	}
}

func (s *Server) sweepGroupTool(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params struct {
		Group    string   `json:"group"`
		Getter   string   `json:"getter,omitempty"`
		Commands []string `json:"commands,omitempty"`
	}

	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}

	if params.Group == "" {
		return nil, fmt.Errorf("group is required")
	}

	template := &models.TaskRequest{}

	switch {
	case len(params.Commands) > 0:
		template.Operation = gateway.OperationCommand
		template.Commands = params.Commands
	case params.Getter != "":
		template.Operation = gateway.GetterOperation(params.Getter)
	default:
		template.Operation = gateway.GetterOperation("facts")
	}

	outcomes := s.dispatcher.DispatchGroup(ctx, params.Group, template)

	return map[string]interface{}{
		"group":    params.Group,
		"outcomes": outcomes,
	}, nil
}

// decodeHostArgs splits tool arguments into the mandatory host and the
// remaining getter parameters.
func decodeHostArgs(args json.RawMessage) (host string, rest map[string]interface{}, err error) {
	raw := make(map[string]interface{})

	if len(args) > 0 {
		if err := json.Unmarshal(args, &raw); err != nil {
			return "", nil, err
		}
	}

	hostValue, ok := raw["host"].(string)
	if !ok || hostValue == "" {
		return "", nil, fmt.Errorf("host is required")
	}

	delete(raw, "host")

	if len(raw) == 0 {
		return hostValue, nil, nil
	}

	return hostValue, raw, nil
}
