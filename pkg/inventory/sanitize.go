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

import "github.com/routekit/netgate/pkg/models"

// HostInfo is the sanitized, boundary-facing view of a device.
type HostInfo struct {
	Name     string                 `json:"name"`
	Hostname string                 `json:"hostname"`
	Platform string                 `json:"platform"`
	Groups   []string               `json:"groups"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// sensitiveKeys are removed recursively from connection-option bags before
// they cross the API boundary.
var sensitiveKeys = map[string]struct{}{
	"username": {},
	"password": {},
	"secret":   {},
}

func summarize(device *models.Device) HostInfo {
	groups := device.Groups
	if groups == nil {
		groups = []string{}
	}

	return HostInfo{
		Name:     device.Name,
		Hostname: device.Hostname,
		Platform: device.Platform,
		Groups:   groups,
		Data:     sanitizeMap(device.Data),
	}
}

// sanitizeMap returns a deep copy of m with sensitive keys removed. The
// source map is never modified; the inventory stays immutable.
func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	out := make(map[string]interface{}, len(m))

	for key, value := range m {
		if _, sensitive := sensitiveKeys[key]; sensitive {
			continue
		}

		out[key] = sanitizeValue(value)
	}

	return out
}

func sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeMap(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}

		return out
	default:
		return value
	}
}
