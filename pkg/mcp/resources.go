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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Resource URIs. Hosts and groups are served as sanitized JSON documents;
// a host-scoped URI addresses one inventory record.
const (
	resourceHosts      = "netgate://hosts"
	resourceGroups     = "netgate://groups"
	resourceHostPrefix = "netgate://hosts/"
)

type resourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesList(w http.ResponseWriter, req JSONRPCRequest) {
	resources := []resourceDescriptor{
		{
			URI:         resourceHosts,
			Name:        "Device inventory",
			Description: "All inventory hosts with sanitized attributes",
			MimeType:    "application/json",
		},
		{
			URI:         resourceGroups,
			Name:        "Inventory groups",
			Description: "Group names and their member hosts",
			MimeType:    "application/json",
		},
	}

	for _, host := range s.dispatcher.Inventory().List("") {
		resources = append(resources, resourceDescriptor{
			URI:         resourceHostPrefix + host.Name,
			Name:        host.Name,
			Description: fmt.Sprintf("Inventory record for %s", host.Name),
			MimeType:    "application/json",
		})
	}

	s.writeSuccess(w, req.ID, map[string]interface{}{
		"resources": resources,
	})
}

func (s *Server) handleResourcesRead(w http.ResponseWriter, req JSONRPCRequest) {
	var params readResourceParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Invalid params", err.Error())

		return
	}

	payload, err := s.readResource(params.URI)
	if err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Unknown resource", err.Error())

		return
	}

	text, err := json.Marshal(payload)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "Internal error", "Failed to marshal resource")

		return
	}

	s.writeSuccess(w, req.ID, map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"uri":      params.URI,
				"mimeType": "application/json",
				"text":     string(text),
			},
		},
	})
}

func (s *Server) readResource(uri string) (interface{}, error) {
	inv := s.dispatcher.Inventory()

	switch {
	case uri == resourceHosts:
		return map[string]interface{}{
			"hosts": inv.List(""),
			"count": inv.Len(),
		}, nil

	case uri == resourceGroups:
		groups := make(map[string][]string)

		for _, name := range inv.GroupNames() {
			members := make([]string, 0)
			for _, device := range inv.Members(name) {
				members = append(members, device.Name)
			}

			groups[name] = members
		}

		return map[string]interface{}{
			"groups": groups,
		}, nil

	case strings.HasPrefix(uri, resourceHostPrefix):
		name := strings.TrimPrefix(uri, resourceHostPrefix)

		info, ok := inv.Info(name)
		if !ok {
			return nil, fmt.Errorf("no such host: %s", name)
		}

		return info, nil

	default:
		return nil, fmt.Errorf("no such resource: %s", uri)
	}
}
