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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/gateway"
	"github.com/routekit/netgate/pkg/inventory"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
	"github.com/routekit/netgate/pkg/policy"
)

type stubDriver struct{}

func (stubDriver) Open(_ context.Context, _ *models.Device) (driver.Conn, error) {
	return stubConn{}, nil
}

type stubConn struct{}

func (stubConn) Getter(_ context.Context, getter string, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"getter": getter, "vendor": "stub"}, nil
}

func (stubConn) CLI(_ context.Context, commands []string) (map[string]string, error) {
	out := make(map[string]string, len(commands))
	for _, cmd := range commands {
		out[cmd] = "output of " + cmd
	}

	return out, nil
}

func (stubConn) Configure(_ context.Context, _ []string) (string, error) {
	return "+stub diff", nil
}

func (stubConn) Close() error { return nil }

const mcpTestHosts = `
R1:
  hostname: 192.0.2.1
  platform: stub
  groups: [lab]
  username: admin
  password: hunter2
  data:
    site: lab-east
R2:
  hostname: 192.0.2.2
  platform: stub
  groups: [lab]
`

func newTestServer(t *testing.T, cfg *Config) (*Server, *mux.Router) {
	t.Helper()

	dir := t.TempDir()
	hostsFile := filepath.Join(dir, "hosts.yaml")
	groupsFile := filepath.Join(dir, "groups.yaml")

	require.NoError(t, os.WriteFile(hostsFile, []byte(mcpTestHosts), 0o600))
	require.NoError(t, os.WriteFile(groupsFile, []byte("lab: {}\n"), 0o600))

	inv, err := inventory.Load(&inventory.Config{
		HostsFile:  hostsFile,
		GroupsFile: groupsFile,
	}, logger.NewTestLogger())
	require.NoError(t, err)

	registry := driver.NewRegistry()
	registry.Register("stub", stubDriver{})

	dispatcher := gateway.NewDispatcher(
		&gateway.Config{Workers: 4},
		inv,
		policy.New([]string{"reload"}, nil, nil),
		registry,
		logger.NewTestLogger(),
	)
	t.Cleanup(dispatcher.Close)

	if cfg == nil {
		cfg = &Config{Enabled: true}
	}

	server := NewServer(context.Background(), dispatcher, logger.NewTestLogger(), cfg)
	t.Cleanup(func() { _ = server.Stop() })

	router := mux.NewRouter()
	server.RegisterRoutes(router)

	return server, router
}

func rpc(t *testing.T, router *mux.Router, headers map[string]string, method string, params interface{}) (*httptest.ResponseRecorder, JSONRPCResponse) {
	t.Helper()

	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		body["params"] = params
	}

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(payload))
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp JSONRPCResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}

	return rec, resp
}

// toolText extracts the JSON text payload of a tools/call response.
func toolText(t *testing.T, resp JSONRPCResponse) string {
	t.Helper()

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)

	content, ok := result["content"].([]interface{})
	require.True(t, ok)
	require.Len(t, content, 1)

	entry, ok := content[0].(map[string]interface{})
	require.True(t, ok)

	text, ok := entry["text"].(string)
	require.True(t, ok)

	return text
}

func TestInitialize(t *testing.T) {
	_, router := newTestServer(t, nil)

	rec, resp := rpc(t, router, nil, "initialize", map[string]interface{}{
		"protocolVersion": protocolVersion,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
}

func TestToolsList(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/list", nil)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)

	tools, ok := result["tools"].([]interface{})
	require.True(t, ok)

	names := make(map[string]bool)

	for _, raw := range tools {
		entry, ok := raw.(map[string]interface{})
		require.True(t, ok)
		names[entry["name"].(string)] = true
	}

	for _, expected := range []string{
		"get_facts", "get_config", "send_command", "send_config",
		"ping", "traceroute", "list_all_hosts", "get_host_info", "sweep_group",
	} {
		assert.True(t, names[expected], "missing tool %s", expected)
	}
}

func TestToolCallGetFacts(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name":      "get_facts",
		"arguments": map[string]interface{}{"host": "R1"},
	})
	require.Nil(t, resp.Error)

	var outcome models.TaskOutcome

	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &outcome))
	assert.Equal(t, "R1", outcome.Host)
	assert.True(t, outcome.Success)
}

func TestToolCallSendCommandBlacklisted(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name": "send_command",
		"arguments": map[string]interface{}{
			"host":    "R1",
			"command": "reload",
		},
	})
	require.Nil(t, resp.Error)

	var outcome models.TaskOutcome

	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &outcome))
	assert.False(t, outcome.Success)
	assert.Equal(t, models.ErrorTypeCommandRejected, outcome.ErrorType)
	assert.Equal(t, "Command is explicitly blacklisted.", outcome.Result)
}

func TestToolCallUnknownDevice(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name":      "get_facts",
		"arguments": map[string]interface{}{"host": "R9"},
	})
	require.Nil(t, resp.Error)

	var outcome models.TaskOutcome

	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &outcome))
	assert.Equal(t, models.ErrorTypeDeviceNotFound, outcome.ErrorType)
	assert.Equal(t, "Device 'R9' not found.", outcome.Result)
}

func TestToolCallListHostsIsSanitized(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name": "list_all_hosts",
	})
	require.Nil(t, resp.Error)

	text := toolText(t, resp)
	assert.Contains(t, text, "R1")
	assert.Contains(t, text, "lab-east")
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "admin")
}

func TestToolCallSweepGroup(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name": "sweep_group",
		"arguments": map[string]interface{}{
			"group": "lab",
		},
	})
	require.Nil(t, resp.Error)

	var sweep struct {
		Group    string               `json:"group"`
		Outcomes []models.TaskOutcome `json:"outcomes"`
	}

	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &sweep))
	assert.Equal(t, "lab", sweep.Group)
	require.Len(t, sweep.Outcomes, 2)
	assert.Equal(t, "R1", sweep.Outcomes[0].Host)
	assert.Equal(t, "R2", sweep.Outcomes[1].Host)
}

func TestToolCallHostInfoByHostname(t *testing.T) {
	_, router := newTestServer(t, nil)

	t.Run("known hostname", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
			"name":      "get_host_info",
			"arguments": map[string]interface{}{"hostname": "192.0.2.2"},
		})
		require.Nil(t, resp.Error)

		var info struct {
			Name     string `json:"name"`
			Hostname string `json:"hostname"`
		}

		require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &info))
		assert.Equal(t, "R2", info.Name)
		assert.Equal(t, "192.0.2.2", info.Hostname)
	})

	t.Run("unknown hostname", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
			"name":      "get_host_info",
			"arguments": map[string]interface{}{"hostname": "203.0.113.1"},
		})
		require.Nil(t, resp.Error)

		var outcome models.TaskOutcome

		require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &outcome))
		assert.Equal(t, models.ErrorTypeDeviceNotFound, outcome.ErrorType)
	})

	t.Run("neither key", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
			"name": "get_host_info",
		})

		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidParams, resp.Error.Code)
	})
}

func TestPromptsList(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "prompts/list", nil)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)

	prompts, ok := result["prompts"].([]interface{})
	require.True(t, ok)
	require.Len(t, prompts, 3)

	names := make([]string, 0, len(prompts))

	for _, raw := range prompts {
		entry, ok := raw.(map[string]interface{})
		require.True(t, ok)
		names = append(names, entry["name"].(string))
	}

	assert.Equal(t, []string{
		"troubleshoot_bgp",
		"troubleshoot_interface",
		"troubleshoot_network_issue",
	}, names)
}

func TestPromptsGet(t *testing.T) {
	_, router := newTestServer(t, nil)

	t.Run("renders arguments into messages", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "prompts/get", map[string]interface{}{
			"name": "troubleshoot_bgp",
			"arguments": map[string]string{
				"device_name": "R1",
				"neighbor_ip": "10.0.0.1",
			},
		})
		require.Nil(t, resp.Error)

		result, ok := resp.Result.(map[string]interface{})
		require.True(t, ok)

		messages, ok := result["messages"].([]interface{})
		require.True(t, ok)
		require.Len(t, messages, 2)

		system := messages[0].(map[string]interface{})
		assert.Equal(t, "system", system["role"])
		assert.Contains(t, system["content"].(map[string]interface{})["text"], "show ip bgp neighbor 10.0.0.1")

		user := messages[1].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		assert.Contains(t, user["content"].(map[string]interface{})["text"], "R1")
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "prompts/get", map[string]interface{}{
			"name": "troubleshoot_interface",
			"arguments": map[string]string{
				"device_name": "R1",
			},
		})

		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidParams, resp.Error.Code)
	})

	t.Run("unknown prompt", func(t *testing.T) {
		_, resp := rpc(t, router, nil, "prompts/get", map[string]interface{}{
			"name": "no_such_prompt",
		})

		require.NotNil(t, resp.Error)
		assert.Equal(t, codeInvalidParams, resp.Error.Code)
	})
}

func TestToolCallUnknownTool(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "tools/call", map[string]interface{}{
		"name": "no_such_tool",
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "bogus/method", nil)

	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestResourcesReadHosts(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "resources/read", map[string]interface{}{
		"uri": resourceHosts,
	})
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)

	contents, ok := result["contents"].([]interface{})
	require.True(t, ok)
	require.Len(t, contents, 1)

	entry := contents[0].(map[string]interface{})
	text := entry["text"].(string)

	assert.Contains(t, text, "R1")
	assert.NotContains(t, text, "hunter2")
}

func TestResourcesReadUnknownURI(t *testing.T) {
	_, router := newTestServer(t, nil)

	_, resp := rpc(t, router, nil, "resources/read", map[string]interface{}{
		"uri": "netgate://nope",
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestAPIKeyAuth(t *testing.T) {
	_, router := newTestServer(t, &Config{Enabled: true, APIKey: "sekrit"})

	rec, _ := rpc(t, router, nil, "tools/list", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := rpc(t, router, map[string]string{"X-API-Key": "sekrit"}, "tools/list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Error)

	rec, resp = rpc(t, router, map[string]string{"Authorization": "Bearer sekrit"}, "tools/list", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Error)
}
