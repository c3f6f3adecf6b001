// Package assets tracks completion of the external script libraries a
// dashboard requires and signals once when all of them have loaded.
package assets

import (
	"sync"

	"github.com/dashwall/dashwall/internal/logger"
)

// Loader counts load reports for the currently displayed dashboard.
// Init starts a fresh cycle; the ready signal fires exactly once per
// cycle, when the recorded count reaches the expected count.
type Loader struct {
	log logger.Logger

	mu       sync.Mutex
	expected int
	loaded   []string
	ready    bool
	subs     []chan bool
}

// New creates a Loader
func New(log logger.Logger) *Loader {
	return &Loader{log: log}
}

// Init resets the loaded list and sets the expected count for a new
// dashboard. Must be called once per dashboard change. A zero count is
// vacuous completion and fires ready immediately.
func (l *Loader) Init(count int) {
	l.mu.Lock()
	l.expected = count
	l.loaded = nil
	l.ready = false
	l.mu.Unlock()

	if count == 0 {
		l.emit()
	}
}

// MarkScriptAsLoaded records one library load. Idempotent: a token
// already recorded in this cycle is ignored. Fires ready when the
// recorded count reaches the expected count.
func (l *Loader) MarkScriptAsLoaded(token string) {
	l.mu.Lock()
	if l.ready {
		l.mu.Unlock()
		return
	}
	for _, t := range l.loaded {
		if t == token {
			l.mu.Unlock()
			return
		}
	}
	l.loaded = append(l.loaded, token)
	complete := l.expected > 0 && len(l.loaded) >= l.expected
	l.mu.Unlock()

	l.log.Debug("External library loaded", "token", token)
	if complete {
		l.emit()
	}
}

// Ready reports whether the current cycle has completed. Subscribers that
// attach after the signal fired see no replay and should query this first.
func (l *Loader) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// LoadedCount returns how many libraries have reported in this cycle
func (l *Loader) LoadedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.loaded)
}

// Subscribe registers for the ready broadcast. The channel receives true
// at most once per Init cycle. No replay for past cycles.
func (l *Loader) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered with Subscribe
func (l *Loader) Unsubscribe(ch <-chan bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, sub := range l.subs {
		if sub == ch {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *Loader) emit() {
	l.mu.Lock()
	if l.ready {
		l.mu.Unlock()
		return
	}
	l.ready = true
	subs := make([]chan bool, len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- true:
		default:
			// Subscriber has an unconsumed signal already
		}
	}
}
