package service

import (
	"context"
	"sync"
	"sync/atomic"
)

type State int32

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Initializer builds the Service at most once. Concurrent callers wait for
// the running initialization and share its outcome; a failure is permanent.
type Initializer struct {
	once  sync.Once
	build func(context.Context) (*Service, error)
	state atomic.Int32
	svc   *Service
	err   error
}

func NewInitializer(d Deps) *Initializer {
	return &Initializer{build: func(ctx context.Context) (*Service, error) { return New(ctx, d) }}
}

// Get returns the ready Service, running initialization on first use.
func (i *Initializer) Get(ctx context.Context) (*Service, error) {
	i.once.Do(func() {
		i.svc, i.err = i.build(ctx)
		if i.err == nil {
			i.state.Store(int32(Ready))
		}
	})
	return i.svc, i.err
}

func (i *Initializer) State() State { return State(i.state.Load()) }
