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

package driver

import (
	"errors"
	"fmt"
)

// ErrNotSupported signals that the device accepted the session but the
// requested capability is not implemented by this driver. Surfaced to
// callers as a distinct, non-alarming execution sub-kind.
var ErrNotSupported = errors.New("operation not supported by driver")

// ConnectError is a transport- or authentication-level fault: the device
// could not be reached or refused the session.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ExecError is a device-side task failure: the session was healthy but the
// operation failed or was rejected by the device.
type ExecError struct {
	Op  string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
