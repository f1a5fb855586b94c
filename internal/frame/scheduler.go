/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package frame runs cooperative, frame-driven work. Each task is a step
// function invoked once per tick until it reports completion or is cancelled.
// All steps run on whichever goroutine calls Tick; Run funnels ticks through a
// dispatch function so a UI toolkit can execute them on its main thread.
package frame

import (
	"context"
	"sync"
	"time"
)

// Token identifies a submitted task. The zero Token is never issued.
type Token uint64

// Step performs one bounded slice of work and reports whether the task is done.
type Step func() (done bool)

type task struct {
	token     Token
	step      Step
	cancelled bool
}

// Scheduler holds the live tasks. The zero value is ready to use.
type Scheduler struct {
	mu    sync.Mutex
	last  Token
	tasks []*task
}

// Submit queues step and returns its token. The first invocation happens on
// the next Tick, never synchronously.
func (s *Scheduler) Submit(step Step) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	s.tasks = append(s.tasks, &task{token: s.last, step: step})
	return s.last
}

// Cancel stops a task; its step is not invoked again. Reports whether the
// token was still live.
func (s *Scheduler) Cancel(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t.token == tok {
			t.cancelled = true
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// live reports whether tok is still scheduled.
func (s *Scheduler) live(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.token == tok {
			return true
		}
	}
	return false
}

// Idle reports whether no tasks are scheduled.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) == 0
}

// Tick runs one step of every task live at the start of the tick and
// returns the number still scheduled afterwards. Steps may Submit or Cancel;
// a task cancelled earlier in the same tick is skipped. Tasks submitted
// during the tick first run on the following one.
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	batch := append([]*task(nil), s.tasks...)
	s.mu.Unlock()

	for _, t := range batch {
		s.mu.Lock()
		skip := t.cancelled
		s.mu.Unlock()
		if skip {
			continue
		}
		if t.step() {
			s.finish(t)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) finish(done *task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks {
		if t == done {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return
		}
	}
}

// Drain ticks until no task remains or maxTicks is reached, returning the
// number of ticks taken. Headless renders and tests use it in place of Run.
func (s *Scheduler) Drain(maxTicks int) int {
	n := 0
	for n < maxTicks && !s.Idle() {
		s.Tick()
		n++
	}
	return n
}

// Run produces a tick every interval until ctx is done, handing each tick to
// dispatch. A nil dispatch calls Tick on the ticker goroutine.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, dispatch func(func())) error {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tk.C:
			if !s.Idle() {
				dispatch(func() { s.Tick() })
			}
		}
	}
}
