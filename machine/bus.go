package machine

import "sync"

// Bus fans events out to subscribers.
//
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mx     sync.RWMutex
	subs   map[chan interface{}]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan interface{}]struct{})}
}

// Subscribe returns a channel receiving every event published after the call,
// and a function that unsubscribes and closes it.
func (b *Bus) Subscribe(size int) (<-chan interface{}, func()) {
	ch := make(chan interface{}, size)

	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mx.Lock()
			defer b.mx.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

// Publish delivers v to every subscriber with room for it.
func (b *Bus) Publish(v interface{}) {
	b.mx.RLock()
	defer b.mx.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Close closes all subscriber channels; later Publish calls are dropped.
func (b *Bus) Close() {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
