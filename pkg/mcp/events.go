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
	"time"
)

const defaultHeartbeatInterval = 30 * time.Second

// handleEvents serves the SSE stream. The stream currently carries periodic
// heartbeats so long-lived clients can detect a dead gateway.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	interval := defaultHeartbeatInterval
	if s.config.HeartbeatSeconds > 0 {
		interval = time.Duration(s.config.HeartbeatSeconds) * time.Second
	}

	s.logger.Debug().
		Str("remote", r.RemoteAddr).
		Msg("SSE client connected")

	if err := writeHeartbeat(w); err != nil {
		return
	}

	flusher.Flush()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug().
				Str("remote", r.RemoteAddr).
				Msg("SSE client disconnected")

			return

		case <-s.ctx.Done():
			return

		case <-ticker.C:
			if err := writeHeartbeat(w); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}

func writeHeartbeat(w http.ResponseWriter) error {
	payload, err := json.Marshal(map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", payload)

	return err
}
