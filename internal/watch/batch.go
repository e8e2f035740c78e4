// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// batcher collects changed paths and hands them to flush once no path was
// added for delay. Flushes never overlap: a batch that becomes due while
// the previous flush runs waits for another quiet period.
type batcher struct {
	delay time.Duration
	flush func(changed []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	busy    bool
	stopped bool
}

func newBatcher(delay time.Duration, flush func([]string)) *batcher {
	return &batcher{delay: delay, flush: flush, pending: make(map[string]struct{})}
}

// add records path and restarts the quiet period.
func (b *batcher) add(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending[path] = struct{}{}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.fire)
		return
	}
	b.timer.Reset(b.delay)
}

func (b *batcher) fire() {
	b.mu.Lock()
	if b.stopped || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	if b.busy {
		b.timer.Reset(b.delay)
		b.mu.Unlock()
		return
	}
	b.busy = true
	changed := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	b.mu.Unlock()

	b.flush(changed)

	b.mu.Lock()
	b.busy = false
	b.mu.Unlock()
}

// stop discards pending paths. A flush already running completes.
func (b *batcher) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
	clear(b.pending)
}
