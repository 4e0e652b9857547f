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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routekit/netgate/pkg/logger"
)

type testConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	Workers    int    `json:"workers" yaml:"workers"`
}

var errNoWorkers = errors.New("workers must be positive")

type validatedConfig struct {
	Workers int `json:"workers"`
}

func (c *validatedConfig) Validate() error {
	if c.Workers <= 0 {
		return errNoWorkers
	}

	return nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadJSONFile(t *testing.T) {
	path := writeTempFile(t, "gateway.json", `{"listen_addr": ":8000", "workers": 100}`)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 100, cfg.Workers)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeTempFile(t, "gateway.yaml", "listen_addr: \":8000\"\nworkers: 50\n")

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	require.NoError(t, loader.LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, 50, cfg.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig

	loader := NewConfig(nil)
	err := loader.LoadAndValidate(context.Background(), "/nonexistent/gateway.json", &cfg)
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeTempFile(t, "gateway.json", `{"listen_addr": `)

	var cfg testConfig

	loader := NewConfig(logger.NewTestLogger())
	assert.Error(t, loader.LoadAndValidate(context.Background(), path, &cfg))
}

func TestValidateConfigIsCalled(t *testing.T) {
	path := writeTempFile(t, "gateway.json", `{"workers": 0}`)

	var cfg validatedConfig

	loader := NewConfig(logger.NewTestLogger())
	err := loader.LoadAndValidate(context.Background(), path, &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoWorkers)
}
