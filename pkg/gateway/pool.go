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

package gateway

import (
	"context"
	"sync"

	"github.com/routekit/netgate/pkg/models"
)

// defaultWorkers bounds concurrent outstanding device calls. Dispatches are
// I/O-latency-bound, so the bound tracks concurrency of device calls, not
// CPU count.
const defaultWorkers = 100

type poolTask struct {
	ctx context.Context
	req *models.TaskRequest
	out chan models.TaskOutcome
}

// Pool is a bounded worker pool executing dispatches. Each dispatch blocks
// its worker for the duration of the device I/O; the unit of concurrency is
// the whole dispatch.
type Pool struct {
	tasks   chan poolTask
	run     func(ctx context.Context, req *models.TaskRequest) models.TaskOutcome
	workers sync.WaitGroup
	pending sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts a pool of the given size. A non-positive size uses the
// default.
func NewPool(workers int, run func(ctx context.Context, req *models.TaskRequest) models.TaskOutcome) *Pool {
	if workers <= 0 {
		workers = defaultWorkers
	}

	p := &Pool{
		tasks: make(chan poolTask),
		run:   run,
	}

	for i := 0; i < workers; i++ {
		p.workers.Add(1)

		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.workers.Done()

	for task := range p.tasks {
		task.out <- p.run(task.ctx, task.req)
	}
}

// Submit enqueues one dispatch and returns a channel that receives exactly
// one outcome. The caller is never blocked waiting for a free worker.
func (p *Pool) Submit(ctx context.Context, req *models.TaskRequest) <-chan models.TaskOutcome {
	out := make(chan models.TaskOutcome, 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		out <- models.FailureOutcome(req.DeviceName, models.ErrorTypeInternal,
			"Gateway is shutting down.")

		return out
	}

	p.pending.Add(1)

	go func() {
		defer p.pending.Done()
		p.tasks <- poolTask{ctx: ctx, req: req, out: out}
	}()

	return out
}

// Stop drains the pool. Already-submitted tasks complete and deliver their
// outcome; later submissions fail with an internal outcome rather than
// being dropped.
func (p *Pool) Stop() {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.tasks)
	p.workers.Wait()
}
