package browse

import (
	"sync"

	"github.com/talkincode/plantcatalog/internal/catalogstate"
)

// watcher forwards published states into a one slot channel. A state that
// was not consumed yet is replaced by the newer one.
type watcher struct {
	mu     sync.Mutex
	ch     chan catalogstate.State
	closed bool
}

func newWatcher() *watcher {
	return &watcher{ch: make(chan catalogstate.State, 1)}
}

func (w *watcher) push(st catalogstate.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case prev := <-w.ch:
		if prev.Version > st.Version {
			st = prev
		}
	default:
	}
	w.ch <- st
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
}

// Watch subscribes to store and returns the state channel plus a stop
// function that unsubscribes and closes the channel
func Watch(store *catalogstate.Store) (<-chan catalogstate.State, func(), error) {
	w := newWatcher()
	unsubscribe, err := store.Subscribe(w.push)
	if err != nil {
		return nil, nil, err
	}
	return w.ch, func() {
		unsubscribe()
		w.close()
	}, nil
}
