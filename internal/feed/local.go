package feed

import (
	"context"
	"sync"
)

// LocalFeed is an in-process Feed for a single API instance.
type LocalFeed struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
	done   chan struct{}
}

func NewLocalFeed() *LocalFeed {
	return &LocalFeed{subs: make(map[chan Event]struct{}), done: make(chan struct{})}
}

func (f *LocalFeed) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	// Publishing under the lock keeps each channel single-sender.
	for ch := range f.subs {
		deliver(ch, ev)
	}
	return nil
}

func (f *LocalFeed) Subscribe(ctx context.Context) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	ch := make(chan Event, subscriberBuffer)
	f.subs[ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			f.remove(ch)
		case <-f.done:
		}
	}()
	return ch, nil
}

func (f *LocalFeed) remove(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

func (f *LocalFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
	return nil
}
