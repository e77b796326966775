package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrUnknownKind  = errors.New("unknown actor kind")
	ErrKindMismatch = errors.New("actor kind mismatch")
	ErrNotLocal     = errors.New("identity is placed on another host")
	ErrStopped      = errors.New("actor system stopped")
)

// Actor is the lifecycle contract every virtual actor implements. Activate
// loads durable state (or builds default state) before the first call is
// delivered; Deactivate runs after the instance is removed from the
// directory, with no calls in flight.
type Actor interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Pinned lets an actor opt out of idle deactivation while it has background
// work (e.g. a pending trade's expiration timer).
type Pinned interface {
	Pinned() bool
}

type Factory func(id Identity) Actor

type Config struct {
	// Host is this process's name on the placement ring.
	Host string
	// IdleAfter deactivates instances unused for this long; zero disables
	// the sweep.
	IdleAfter time.Duration
	Clock     func() time.Time
}

// System is the actor directory and scheduler: it resolves an identity to
// exactly one live instance, activating on demand, and serializes all calls
// to that instance through a private mailbox. Calls to different identities
// run fully in parallel.
type System struct {
	cfg       Config
	ring      *Ring
	mu        sync.Mutex
	factories map[string]Factory
	instances map[Identity]*instance
	stopped   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

type callResult struct {
	value any
	err   error
}

type call struct {
	ctx  context.Context
	fn   func(ctx context.Context, a Actor) (any, error)
	done chan callResult
}

type instance struct {
	actor    Actor
	calls    chan *call
	inflight int64
	lastUsed int64
	closed   bool

	activateOnce sync.Once
	activateErr  error
}

func NewSystem(cfg Config) *System {
	if cfg.Host == "" {
		cfg.Host = "local"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	s := &System{
		cfg:       cfg,
		ring:      NewRing(0),
		factories: make(map[string]Factory),
		instances: make(map[Identity]*instance),
		stopCh:    make(chan struct{}),
	}
	s.ring.Add(cfg.Host)
	if cfg.IdleAfter > 0 {
		s.wg.Add(1)
		go s.sweepIdle()
	}
	return s
}

func (s *System) Register(kind string, f Factory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[kind] = f
}

// AddHost adds a peer to the placement ring. Identities the ring assigns
// elsewhere fail locally with ErrNotLocal; routing the call to the owning
// host is the transport layer's job.
func (s *System) AddHost(host string) {
	s.ring.Add(host)
}

func (s *System) RemoveHost(host string) {
	s.ring.Remove(host)
}

// Invoke enqueues fn on the identity's private serialized queue and waits
// for the result. Two calls to the same identity never interleave their
// effects; fn may invoke other actors, which suspends only this identity's
// queue. If ctx expires while the call is queued or running, Invoke returns
// ctx.Err() but the call may still take effect, so retried operations must
// be idempotent.
func (s *System) Invoke(ctx context.Context, id Identity, fn func(ctx context.Context, a Actor) (any, error)) (any, error) {
	if owner := s.ring.Owner(id.String()); owner != s.cfg.Host {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotLocal, id, owner)
	}
	inst, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer s.release(inst)

	inst.activateOnce.Do(func() {
		inst.activateErr = inst.actor.Activate(ctx)
	})
	if inst.activateErr != nil {
		err := inst.activateErr
		s.evict(id, inst)
		return nil, err
	}

	c := &call{ctx: ctx, fn: fn, done: make(chan callResult, 1)}
	select {
	case inst.calls <- c:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.stopCh:
		return nil, ErrStopped
	}
	select {
	case r := <-c.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call is a typed Invoke: it asserts the instance to T and unwraps the
// result.
func Call[T Actor, R any](ctx context.Context, s *System, id Identity, fn func(ctx context.Context, a T) (R, error)) (R, error) {
	var zero R
	out, err := s.Invoke(ctx, id, func(ctx context.Context, a Actor) (any, error) {
		t, ok := a.(T)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKindMismatch, id)
		}
		return fn(ctx, t)
	})
	if out == nil {
		return zero, err
	}
	v, ok := out.(R)
	if !ok {
		return zero, err
	}
	return v, err
}

func (s *System) acquire(id Identity) (*instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	inst, ok := s.instances[id]
	if !ok {
		factory, ok := s.factories[id.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, id.Kind)
		}
		inst = &instance{
			actor: factory(id),
			calls: make(chan *call, 64),
		}
		s.instances[id] = inst
		s.wg.Add(1)
		go s.runMailbox(inst)
	}
	atomic.AddInt64(&inst.inflight, 1)
	return inst, nil
}

func (s *System) release(inst *instance) {
	atomic.StoreInt64(&inst.lastUsed, s.cfg.Clock().UnixNano())
	if atomic.AddInt64(&inst.inflight, -1) > 0 {
		return
	}
	// After Stop, the last invoker out closes the mailbox; Stop itself only
	// closes quiescent instances because a parked sender must never race a
	// close.
	select {
	case <-s.stopCh:
		s.mu.Lock()
		if !inst.closed {
			inst.closed = true
			close(inst.calls)
		}
		s.mu.Unlock()
	default:
	}
}

func (s *System) evict(id Identity, inst *instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.instances[id]; ok && cur == inst && !inst.closed {
		inst.closed = true
		close(inst.calls)
		delete(s.instances, id)
	}
}

// runMailbox is the single worker that gives an instance turn-based
// concurrency: one call at a time, in arrival order.
func (s *System) runMailbox(inst *instance) {
	defer s.wg.Done()
	for c := range inst.calls {
		if c.ctx.Err() != nil {
			c.done <- callResult{err: c.ctx.Err()}
			continue
		}
		v, err := c.fn(c.ctx, inst.actor)
		c.done <- callResult{value: v, err: err}
	}
	if inst.activateErr == nil {
		_ = inst.actor.Deactivate(context.Background())
	}
}

// Deactivate removes the instance now if it is quiescent. The next Invoke
// reactivates it transparently from durable state.
func (s *System) Deactivate(id Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || atomic.LoadInt64(&inst.inflight) > 0 || len(inst.calls) > 0 {
		return false
	}
	inst.closed = true
	close(inst.calls)
	delete(s.instances, id)
	return true
}

func (s *System) sweepIdle() {
	defer s.wg.Done()
	interval := s.cfg.IdleAfter / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			cutoff := s.cfg.Clock().Add(-s.cfg.IdleAfter).UnixNano()
			s.mu.Lock()
			for id, inst := range s.instances {
				if atomic.LoadInt64(&inst.inflight) > 0 || len(inst.calls) > 0 {
					continue
				}
				if atomic.LoadInt64(&inst.lastUsed) > cutoff {
					continue
				}
				if p, ok := inst.actor.(Pinned); ok && p.Pinned() {
					continue
				}
				inst.closed = true
				close(inst.calls)
				delete(s.instances, id)
			}
			s.mu.Unlock()
		}
	}
}

// Stop deactivates every instance and rejects further invokes.
func (s *System) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	for id, inst := range s.instances {
		// An invoker between acquire and release may be parked on the send;
		// closing under it would panic. release handles those instances once
		// the last invoker drains out through stopCh.
		if !inst.closed && atomic.LoadInt64(&inst.inflight) == 0 {
			inst.closed = true
			close(inst.calls)
		}
		delete(s.instances, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
