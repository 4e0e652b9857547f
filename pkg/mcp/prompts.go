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
	"sort"
)

// Prompt is the wire form of a prompt definition.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

type promptMessage struct {
	Role    string        `json:"role"`
	Content promptContent `json:"content"`
}

type promptContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// prompt binds a wire definition to its message renderer.
type prompt struct {
	def    Prompt
	render func(args map[string]string) []promptMessage
}

type promptGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// buildPrompts assembles the troubleshooting prompt table. Prompts are
// guided workflows a client can hand to a model; every workflow steers the
// model through the gateway's own tools.
func (s *Server) buildPrompts() map[string]prompt {
	return map[string]prompt{
		"troubleshoot_network_issue": {
			def: Prompt{
				Name:        "troubleshoot_network_issue",
				Description: "Systematic troubleshooting of a reported symptom on one device",
				Arguments: []PromptArgument{
					{Name: "symptom", Description: "The observed symptom", Required: true},
					{Name: "device_name", Description: "Inventory name of the affected device", Required: true},
				},
			},
			render: func(args map[string]string) []promptMessage {
				return []promptMessage{
					systemMessage(
						"You are a senior network engineer. Your task is to troubleshoot and diagnose network issues based on the provided symptom. " +
							"Follow a systematic approach. ALWAYS call `list_all_hosts` first to discover available devices. " +
							"Use the 'name' field from that output as the 'host' parameter for all subsequent tool calls. " +
							"Before running deeper commands, clearly state your assumptions."),
					userMessage(fmt.Sprintf(
						"I observed the following symptom on the device named `%s`: '%s'. Please start the troubleshooting process.",
						args["device_name"], args["symptom"])),
				}
			},
		},
		"troubleshoot_bgp": {
			def: Prompt{
				Name:        "troubleshoot_bgp",
				Description: "Troubleshoot a BGP peering session on one device",
				Arguments: []PromptArgument{
					{Name: "device_name", Description: "Inventory name of the device", Required: true},
					{Name: "neighbor_ip", Description: "Address of the BGP neighbor", Required: true},
				},
			},
			render: func(args map[string]string) []promptMessage {
				neighbor := args["neighbor_ip"]

				return []promptMessage{
					systemMessage(fmt.Sprintf(
						"You are a senior network engineer specializing in BGP. Your goal is to troubleshoot a BGP session. "+
							"Follow a logical workflow. Start by checking the overall BGP summary, then inspect the specific neighbor, and finally check received and advertised routes. "+
							"Use the following commands as a guide on the specified device: "+
							"1. `show ip bgp summary` to check the neighbor state. "+
							"2. `show ip bgp neighbor %s` to get detailed information about the session. "+
							"3. `show ip bgp neighbor %s received-routes` to verify prefixes being received. "+
							"4. `show running-config | section router bgp` to check the BGP configuration. "+
							"Analyze the output of each command to determine the next step. Conclude with a diagnosis and recommended fix.",
						neighbor, neighbor)),
					userMessage(fmt.Sprintf(
						"The BGP session with neighbor `%s` on device `%s` is not establishing or is flapping. Please investigate.",
						neighbor, args["device_name"])),
				}
			},
		},
		"troubleshoot_interface": {
			def: Prompt{
				Name:        "troubleshoot_interface",
				Description: "Troubleshoot a problematic interface on one device",
				Arguments: []PromptArgument{
					{Name: "device_name", Description: "Inventory name of the device", Required: true},
					{Name: "interface_name", Description: "Name of the interface", Required: true},
				},
			},
			render: func(args map[string]string) []promptMessage {
				iface := args["interface_name"]

				return []promptMessage{
					systemMessage(fmt.Sprintf(
						"You are a senior network engineer troubleshooting a problematic network interface. "+
							"Your task is to identify the root cause of an interface issue. "+
							"Begin by checking the interface status and protocol state. Then, examine for any errors, review the configuration, and check logs. "+
							"Use these commands as your primary toolkit on the specified device: "+
							"1. `show ip interface brief` to get a quick overview of all interface statuses. "+
							"2. `show interfaces %s` to check the detailed status, line protocol, and input/output rates. "+
							"3. `show interfaces %s counters errors` to check for specific hardware or protocol errors. "+
							"4. `show running-config interface %s` to validate the configuration. "+
							"Based on your findings, provide a clear diagnosis and suggest a solution.",
						iface, iface, iface)),
					userMessage(fmt.Sprintf(
						"Users are reporting connectivity issues through interface `%s` on device `%s`. Please find the cause of the problem.",
						iface, args["device_name"])),
				}
			},
		},
	}
}

func systemMessage(text string) promptMessage {
	return promptMessage{Role: "system", Content: promptContent{Type: "text", Text: text}}
}

func userMessage(text string) promptMessage {
	return promptMessage{Role: "user", Content: promptContent{Type: "text", Text: text}}
}

// promptDefinitions lists the wire definitions in stable name order.
func (s *Server) promptDefinitions() []Prompt {
	defs := make([]Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		defs = append(defs, p.def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	return defs
}

func (s *Server) handlePromptsList(w http.ResponseWriter, req JSONRPCRequest) {
	s.writeSuccess(w, req.ID, map[string]interface{}{
		"prompts": s.promptDefinitions(),
	})
}

func (s *Server) handlePromptsGet(w http.ResponseWriter, req JSONRPCRequest) {
	var params promptGetParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.writeError(w, req.ID, codeInvalidParams, "Invalid params", err.Error())

		return
	}

	p, ok := s.prompts[params.Name]
	if !ok {
		s.writeError(w, req.ID, codeInvalidParams, "Unknown prompt", fmt.Sprintf("Prompt not found: %s", params.Name))

		return
	}

	for _, arg := range p.def.Arguments {
		if arg.Required && params.Arguments[arg.Name] == "" {
			s.writeError(w, req.ID, codeInvalidParams, "Invalid arguments",
				fmt.Sprintf("%s is required", arg.Name))

			return
		}
	}

	s.writeSuccess(w, req.ID, map[string]interface{}{
		"description": p.def.Description,
		"messages":    p.render(params.Arguments),
	})
}
