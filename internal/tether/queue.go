// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tether

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO with any number of producers and one consumer.
// Push never blocks, so reader goroutines and watcher callbacks cannot stall
// on a busy control loop.
type queue struct {
	mu     sync.Mutex
	items  []Event
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(ev Event) int {
	q.mu.Lock()
	q.items = append(q.items, ev)
	n := len(q.items)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return n
}

// pop blocks until an event is available or ctx is done.
func (q *queue) pop(ctx context.Context) (Event, int, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			n := len(q.items)
			if n == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return ev, n, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, false
		case <-q.signal:
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
