package channel

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bytedance/gg/gmap"
)

// Registry holds the running channels of one gateway, keyed by channel id.
type Registry struct {
	chans map[string]Channel

	cnt atomic.Int64
	mu  sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		chans: make(map[string]Channel, 4),
	}
}

func (r *Registry) Register(ch Channel) error {
	if ch == nil || ch.ID() == "" {
		return fmt.Errorf("register channel: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chans[ch.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrChannelExists, ch.ID())
	}
	r.chans[ch.ID()] = ch
	r.cnt.Add(1)
	return nil
}

func (r *Registry) Get(id string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.chans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	return ch, nil
}

// List returns the registered channels ordered by id.
func (r *Registry) List() []Channel {
	r.mu.RLock()
	out := gmap.ToSlice(
		r.chans,
		func(k string, v Channel) Channel { return v },
	)
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	return int(r.cnt.Load())
}

func (r *Registry) Unregister(id string) {
	if id == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chans[id]; ok {
		delete(r.chans, id)
		r.cnt.Add(-1)
	}
}
