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

package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/netgate/pkg/logger"
)

func testBlacklist() *Blacklist {
	return New(
		[]string{"reload", "write erase"},
		[]string{"delete", "format", "shutdown"},
		[]string{"|", ">", ";"},
	)
}

func TestValidateAcceptsCleanCommands(t *testing.T) {
	b := testBlacklist()

	for _, command := range []string{
		"show version",
		"show ip interface brief",
		"show running-config",
		"ping 192.0.2.1",
	} {
		assert.Nil(t, b.Validate(command), "command %q should be accepted", command)
	}
}

func TestValidatePatternStage(t *testing.T) {
	b := New([]string{"reload"}, nil, []string{"|"})

	violation := b.Validate("show running-config | include password")
	require.NotNil(t, violation)
	assert.Equal(t, "pattern", violation.Rule)
	assert.Equal(t, "|", violation.Match)
	assert.Contains(t, violation.Message, `"|"`)
}

func TestValidateExactStage(t *testing.T) {
	b := New([]string{"reload"}, nil, nil)

	violation := b.Validate("reload")
	require.NotNil(t, violation)
	assert.Equal(t, "exact", violation.Rule)
	assert.Equal(t, "Command is explicitly blacklisted.", violation.Message)
}

func TestValidateExactIsCaseFoldedAndTrimmed(t *testing.T) {
	b := New([]string{"Reload"}, nil, nil)

	assert.NotNil(t, b.Validate("  RELOAD  "))
	assert.NotNil(t, b.Validate("reload"))
}

func TestValidateKeywordWholeWord(t *testing.T) {
	b := testBlacklist()

	tests := []struct {
		name     string
		command  string
		rejected bool
		keyword  string
	}{
		{
			name:     "keyword as whole word",
			command:  "delete flash:config.bak",
			rejected: true,
			keyword:  "delete",
		},
		{
			name:     "keyword case-insensitive",
			command:  "no SHUTDOWN",
			rejected: true,
			keyword:  "shutdown",
		},
		{
			name:     "keyword inside larger word is not a match",
			command:  "show deletions",
			rejected: false,
		},
		{
			name:     "keyword substring of interface name is not a match",
			command:  "show formats",
			rejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violation := b.Validate(tt.command)
			if !tt.rejected {
				assert.Nil(t, violation)
				return
			}

			require.NotNil(t, violation)
			assert.Equal(t, "keyword", violation.Rule)
			assert.Equal(t, tt.keyword, violation.Match)
		})
	}
}

func TestValidateStageOrder(t *testing.T) {
	// "reload | now" hits the pattern stage before the exact stage ever
	// sees it; "reload" alone hits exact before keywords.
	b := New([]string{"reload | now"}, []string{"reload"}, []string{"|"})

	violation := b.Validate("reload | now")
	require.NotNil(t, violation)
	assert.Equal(t, "pattern", violation.Rule)

	violation = b.Validate("reload")
	require.NotNil(t, violation)
	assert.Equal(t, "keyword", violation.Rule)
}

func TestValidatePatternScansRawCommand(t *testing.T) {
	// Patterns are matched against the raw command, before lowercasing.
	b := New(nil, nil, []string{"RM"})

	assert.NotNil(t, b.Validate("alias exec wipe RM all"))
	assert.Nil(t, b.Validate("alias exec wipe rm all"))
}

func TestValidateAllRejectsWholeBatch(t *testing.T) {
	b := testBlacklist()

	violation := b.ValidateAll([]string{"show version", "reload", "show clock"})
	require.NotNil(t, violation)
	assert.Equal(t, "exact", violation.Rule)

	assert.Nil(t, b.ValidateAll([]string{"show version", "show clock"}))
}

func TestEmptyPolicyAcceptsEverything(t *testing.T) {
	b := Empty()

	assert.Nil(t, b.Validate("reload"))
	assert.Nil(t, b.Validate("rm -rf / ; reboot"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	content := "exact_commands:\n  - reload\nkeywords:\n  - delete\ndisallowed_patterns:\n  - \"|\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	b := LoadFile(path, logger.NewTestLogger())

	assert.NotNil(t, b.Validate("reload"))
	assert.NotNil(t, b.Validate("delete flash:"))
	assert.NotNil(t, b.Validate("show version | include IOS"))
	assert.Nil(t, b.Validate("show version"))
}

func TestLoadFileMissingDegradesToEmpty(t *testing.T) {
	b := LoadFile("/nonexistent/blacklist.yaml", logger.NewTestLogger())

	assert.Nil(t, b.Validate("reload"))
}

func TestLoadFileMalformedDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exact_commands: {not: [valid"), 0o600))

	b := LoadFile(path, logger.NewTestLogger())

	assert.Nil(t, b.Validate("reload"))
}
