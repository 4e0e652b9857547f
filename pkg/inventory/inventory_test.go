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

package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/netgate/pkg/logger"
)

const testHosts = `
R1:
  hostname: 192.0.2.1
  platform: ios
  groups: [core]
  data:
    snmp_community: public
    site: fra1
    auth:
      password: s3cr3t
      method: md5
R2:
  hostname: 192.0.2.2
  groups: [core, edge]
SW1:
  hostname: 192.0.2.10
  platform: nxos
  username: localadmin
`

const testGroups = `
core:
  platform: ios
  username: netops
  password: grouppass
edge:
  data:
    site: ams1
`

const testDefaults = `
username: fallback
platform: linux
data:
  domain: example.net
`

func writeInventory(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &Config{
		HostsFile:    filepath.Join(dir, "hosts.yaml"),
		GroupsFile:   filepath.Join(dir, "groups.yaml"),
		DefaultsFile: filepath.Join(dir, "defaults.yaml"),
	}

	require.NoError(t, os.WriteFile(cfg.HostsFile, []byte(testHosts), 0o600))
	require.NoError(t, os.WriteFile(cfg.GroupsFile, []byte(testGroups), 0o600))
	require.NoError(t, os.WriteFile(cfg.DefaultsFile, []byte(testDefaults), 0o600))

	return cfg
}

func loadTestInventory(t *testing.T) *Inventory {
	t.Helper()

	inv, err := Load(writeInventory(t), logger.NewTestLogger())
	require.NoError(t, err)

	return inv
}

func TestResolveKnownDevice(t *testing.T) {
	inv := loadTestInventory(t)

	device, err := inv.Resolve("R1")
	require.NoError(t, err)

	assert.Equal(t, "R1", device.Name)
	assert.Equal(t, "192.0.2.1", device.Hostname)
	assert.Equal(t, "ios", device.Platform)
	assert.Equal(t, []string{"core"}, device.Groups)
}

func TestResolveUnknownDevice(t *testing.T) {
	inv := loadTestInventory(t)

	_, err := inv.Resolve("R9")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestResolveIsCaseSensitive(t *testing.T) {
	inv := loadTestInventory(t)

	_, err := inv.Resolve("r1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestGroupInheritance(t *testing.T) {
	inv := loadTestInventory(t)

	device, err := inv.Resolve("R2")
	require.NoError(t, err)

	// Platform and credentials come from the 'core' group, the site from
	// the 'edge' group, the domain from the defaults.
	assert.Equal(t, "ios", device.Platform)
	assert.Equal(t, "netops", device.Username)
	assert.Equal(t, "grouppass", device.Password)
	assert.Equal(t, "ams1", device.Data["site"])
	assert.Equal(t, "example.net", device.Data["domain"])
}

func TestHostValuesWinOverGroups(t *testing.T) {
	inv := loadTestInventory(t)

	device, err := inv.Resolve("SW1")
	require.NoError(t, err)

	assert.Equal(t, "nxos", device.Platform)
	assert.Equal(t, "localadmin", device.Username)
}

func TestDefaultsApplyLast(t *testing.T) {
	inv := loadTestInventory(t)

	device, err := inv.Resolve("SW1")
	require.NoError(t, err)

	// SW1 has no groups; password falls through to nothing, username is
	// set on the host, platform on the host, domain from defaults.
	assert.Equal(t, "example.net", device.Data["domain"])
	assert.Empty(t, device.Password)
}

func TestListAllAndByGroup(t *testing.T) {
	inv := loadTestInventory(t)

	all := inv.List("")
	assert.Len(t, all, 3)
	assert.Equal(t, "R1", all[0].Name) // name-sorted

	core := inv.List("core")
	assert.Len(t, core, 2)

	edge := inv.List("edge")
	require.Len(t, edge, 1)
	assert.Equal(t, "R2", edge[0].Name)
}

func TestListSanitizesCredentials(t *testing.T) {
	inv := loadTestInventory(t)

	var r1 HostInfo

	for _, info := range inv.List("") {
		assert.NotContains(t, info.Data, "username")
		assert.NotContains(t, info.Data, "password")
		assert.NotContains(t, info.Data, "secret")

		if info.Name == "R1" {
			r1 = info
		}
	}

	require.NotEmpty(t, r1.Name)
	assert.Equal(t, "public", r1.Data["snmp_community"])

	// Nested bags are sanitized recursively.
	auth, ok := r1.Data["auth"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "md5", auth["method"])
	assert.NotContains(t, auth, "password")
}

func TestByHostname(t *testing.T) {
	inv := loadTestInventory(t)

	device, ok := inv.ByHostname("192.0.2.10")
	require.True(t, ok)
	assert.Equal(t, "SW1", device.Name)

	_, ok = inv.ByHostname("203.0.113.1")
	assert.False(t, ok)
}

func TestUndefinedGroupIsFatal(t *testing.T) {
	dir := t.TempDir()
	hostsFile := filepath.Join(dir, "hosts.yaml")
	require.NoError(t, os.WriteFile(hostsFile, []byte("R1:\n  groups: [missing]\n"), 0o600))

	_, err := Load(&Config{HostsFile: hostsFile}, logger.NewTestLogger())
	assert.Error(t, err)
}

func TestMissingHostsFileIsFatal(t *testing.T) {
	_, err := Load(&Config{HostsFile: "/nonexistent/hosts.yaml"}, logger.NewTestLogger())
	assert.Error(t, err)
}

func TestGroupNamesAndMembers(t *testing.T) {
	inv := loadTestInventory(t)

	assert.Equal(t, []string{"core", "edge"}, inv.GroupNames())

	members := inv.Members("core")
	require.Len(t, members, 2)
	assert.Equal(t, "R1", members[0].Name)
	assert.Equal(t, "R2", members[1].Name)
}
