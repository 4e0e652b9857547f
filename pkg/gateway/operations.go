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
	"github.com/routekit/netgate/pkg/models"
)

// Handler executes one operation kind over an open device connection.
// Every operation the gateway can perform is one fixed Handler in the
// static table below; there is no runtime-assembled dispatch code.
type Handler interface {
	Run(ctx context.Context, conn driver.Conn, req *models.TaskRequest) (interface{}, error)
}

// OperationCommand executes caller-supplied show commands; OperationConfigure
// merges caller-supplied configuration lines. Both carry command text and are
// therefore subject to blacklist validation. Getter operations are addressed
// as "getter:<name>".
const (
	OperationCommand   = "command"
	OperationConfigure = "configure"

	getterPrefix = "getter:"
)

// getterNames enumerates every read-only query the gateway exposes.
// Whether a given driver implements a getter is the driver's business;
// unimplemented getters surface as a distinct execution sub-kind.
var getterNames = []string{
	"facts",
	"vlans",
	"users",
	"arp_table",
	"bgp_neighbors",
	"interfaces",
	"interfaces_counters",
	"interfaces_ip",
	"mac_address_table",
	"snmp_information",
	"environment",
	"ipv6_neighbors_table",
	"lldp_neighbors",
	"ntp_peers",
	"ntp_servers",
	"ntp_stats",
	"optics",
	"probes_config",
	"is_alive",
	"config",
	"bgp_config",
	"bgp_neighbors_detail",
	"lldp_neighbors_detail",
	"network_instances",
	"ping",
	"traceroute",
}

// Getters returns the getter name list for boundary layers that enumerate
// the tool surface.
func Getters() []string {
	out := make([]string, len(getterNames))
	copy(out, getterNames)

	return out
}

// GetterOperation addresses the named getter in the operation table.
func GetterOperation(name string) string {
	return getterPrefix + name
}

// defaultOperations builds the static operation table.
func defaultOperations() map[string]Handler {
	ops := map[string]Handler{
		OperationCommand:   &commandHandler{},
		OperationConfigure: &configureHandler{},
	}

	for _, name := range getterNames {
		ops[getterPrefix+name] = &getterHandler{name: name}
	}

	return ops
}

// getterHandler runs one named read-only query.
type getterHandler struct {
	name string
}

func (h *getterHandler) Run(ctx context.Context, conn driver.Conn, req *models.TaskRequest) (interface{}, error) {
	return conn.Getter(ctx, h.name, req.Args)
}

// commandHandler executes the request's ordered command list as a single
// driver invocation.
type commandHandler struct{}

func (*commandHandler) Run(ctx context.Context, conn driver.Conn, req *models.TaskRequest) (interface{}, error) {
	out, err := conn.CLI(ctx, req.Commands)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// configureHandler merges the request's config lines and returns the diff.
// The diff is wrapped in a record so that a no-op merge (empty diff) still
// reads as a successful outcome rather than an empty result.
type configureHandler struct{}

func (*configureHandler) Run(ctx context.Context, conn driver.Conn, req *models.TaskRequest) (interface{}, error) {
	diff, err := conn.Configure(ctx, req.Commands)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"diff": diff}, nil
}

// carriesCommandText reports whether the operation embeds caller-supplied
// command text that must pass blacklist validation before any device I/O.
func carriesCommandText(operation string) bool {
	return operation == OperationCommand || operation == OperationConfigure
}
