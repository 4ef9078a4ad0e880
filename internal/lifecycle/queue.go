// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"bufio"
	"io"
	"log/slog"

	"github.com/tombee/mcrun/internal/log"
)

// DefaultQueueSize bounds the number of console lines waiting for the server.
const DefaultQueueSize = 64

// CommandQueue is a bounded FIFO of console lines headed for the server's
// standard input. Any number of goroutines may enqueue; exactly one drains.
type CommandQueue struct {
	lines chan string
}

// NewCommandQueue creates a queue holding at most size pending lines.
func NewCommandQueue(size int) *CommandQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &CommandQueue{lines: make(chan string, size)}
}

// Enqueue appends line, blocking while the queue is full. It gives up and
// returns false once done is closed.
func (q *CommandQueue) Enqueue(line string, done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
	}
	select {
	case q.lines <- line:
		return true
	case <-done:
		return false
	}
}

// Len reports how many lines are waiting.
func (q *CommandQueue) Len() int {
	return len(q.lines)
}

// Drain writes queued lines to w, newline terminated, until done is closed
// or a write fails. A failed write means the server has closed its input;
// it is logged at debug and ends the drain.
func (q *CommandQueue) Drain(w io.Writer, done <-chan struct{}, logger *slog.Logger) {
	for {
		select {
		case line := <-q.lines:
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				logger.Debug("server input closed, dropping console input", log.Error(err))
				return
			}
			log.Trace(logger, "forwarded console line", slog.String("line", line))
		case <-done:
			return
		}
	}
}

// Forward reads whole lines from r and enqueues them until r is exhausted
// or done is closed. The read itself cannot be interrupted, so this
// goroutine may stay blocked on r after done closes; it stops enqueueing
// once done is closed.
func (q *CommandQueue) Forward(r io.Reader, done <-chan struct{}, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !q.Enqueue(scanner.Text(), done) {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("console input stopped", log.Error(err))
		return
	}
	logger.Debug("console input reached EOF")
}
