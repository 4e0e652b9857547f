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

package models

import "fmt"

// ErrorType classifies a failed task outcome. The set is exhaustive;
// every failure a caller can observe maps to exactly one of these.
type ErrorType string

const (
	ErrorTypeDeviceNotFound  ErrorType = "DeviceNotFound"
	ErrorTypeCommandRejected ErrorType = "CommandRejected"
	ErrorTypeConnection      ErrorType = "ConnectionError"
	ErrorTypeTaskExecution   ErrorType = "TaskExecutionError"
	ErrorTypeEmptyResult     ErrorType = "EmptyResult"
	ErrorTypeFormat          ErrorType = "FormatError"
	ErrorTypeInternal        ErrorType = "InternalError"
)

// TaskRequest is one operation against one device. Constructed per call and
// never retained past it.
type TaskRequest struct {
	TaskID     string                 `json:"task_id,omitempty"`
	DeviceName string                 `json:"device_name"`
	Operation  string                 `json:"operation"`
	Commands   []string               `json:"commands,omitempty"`
	Args       map[string]interface{} `json:"args,omitempty"`
}

// TaskOutcome is the canonical result shape. Every dispatch terminates in
// exactly one TaskOutcome; no raw driver result or error crosses the
// gateway boundary.
type TaskOutcome struct {
	Host      string      `json:"host"`
	Success   bool        `json:"success"`
	ErrorType ErrorType   `json:"error_type,omitempty"`
	Result    interface{} `json:"result"`
}

// SuccessOutcome builds a successful outcome carrying the normalized payload.
func SuccessOutcome(host string, payload interface{}) TaskOutcome {
	return TaskOutcome{Host: host, Success: true, Result: payload}
}

// FailureOutcome builds a failed outcome with a human-readable detail.
func FailureOutcome(host string, errorType ErrorType, format string, args ...interface{}) TaskOutcome {
	return TaskOutcome{
		Host:      host,
		Success:   false,
		ErrorType: errorType,
		Result:    fmt.Sprintf(format, args...),
	}
}
