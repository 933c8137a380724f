// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/danielhkuo/livepoll/models"
)

var ErrNotifierClosed = errors.New("notifier is not running")

// Options configures a Notifier
type Options struct {
	// Frames buffered per session before deliveries are lost
	SessionBuffer int
	// Drop sessions whose buffer overflows
	EvictSlow bool
	// Command queue length
	QueueSize int
}

// command runs on the notifier goroutine with exclusive access to the registry
type command func(r *Registry)

// Notifier is the single owner of the topic registry. Every operation is a
// command applied in arrival order by the goroutine started with Run, so
// subscribe, unsubscribe, drop and publish never race each other. Commands
// only touch memory; no I/O happens while one runs.
type Notifier struct {
	cmds     chan command
	done     chan struct{}
	registry *Registry
	buffer   int
}

func NewNotifier(opts Options) *Notifier {
	if opts.SessionBuffer < 1 {
		opts.SessionBuffer = 16
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 256
	}
	return &Notifier{
		cmds:     make(chan command, opts.QueueSize),
		done:     make(chan struct{}),
		registry: NewRegistry(opts.EvictSlow),
		buffer:   opts.SessionBuffer,
	}
}

// Run applies commands until ctx is cancelled, then drops every session so
// connection handlers see their outbound channels close. Commands already
// queued when ctx ends are applied before the sessions are dropped. Call it
// once.
func (n *Notifier) Run(ctx context.Context) {
	slog.Info("notifier started")
	defer func() {
		n.drainQueued()
		// done first, so handlers that see their queue close can tell shutdown from eviction
		close(n.done)
		n.registry.DropAll()
		slog.Info("notifier stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-n.cmds:
			cmd(n.registry)
		}
	}
}

// drainQueued applies the commands queued at the moment it is called. It
// does not wait for more.
func (n *Notifier) drainQueued() {
	for i := len(n.cmds); i > 0; i-- {
		select {
		case cmd := <-n.cmds:
			cmd(n.registry)
		default:
			return
		}
	}
}

// Done is closed when Run stops applying commands
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// enqueue hands cmd to the notifier goroutine without waiting for it to run
func (n *Notifier) enqueue(ctx context.Context, cmd command) error {
	select {
	case <-n.done:
		return ErrNotifierClosed
	default:
	}
	select {
	case n.cmds <- cmd:
		return nil
	case <-n.done:
		return ErrNotifierClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call enqueues cmd and waits until it has been applied
func (n *Notifier) call(ctx context.Context, cmd func(r *Registry) error) error {
	reply := make(chan error, 1)
	err := n.enqueue(ctx, func(r *Registry) {
		reply <- cmd(r)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-n.done:
		// The command may have run just before shutdown
		select {
		case err := <-reply:
			return err
		default:
			return ErrNotifierClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register creates a session for identity. The caller keeps only the
// returned Inbox. If ctx ends before the notifier reaches the request, the
// session is never added; if the notifier already added it, Register
// reports success and the caller owns the session as usual.
func (n *Notifier) Register(ctx context.Context, identity string) (Inbox, error) {
	s := newSession(identity, n.buffer)
	inbox := Inbox{ID: s.id, Frames: s.out}

	// Whoever claims first decides: the notifier adds the session, or the
	// caller abandons it.
	var claimed atomic.Bool
	reply := make(chan error, 1)
	err := n.enqueue(ctx, func(r *Registry) {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		reply <- r.add(s)
	})
	if err != nil {
		return Inbox{}, err
	}

	select {
	case err = <-reply:
	case <-n.done:
		if claimed.CompareAndSwap(false, true) {
			return Inbox{}, ErrNotifierClosed
		}
		err = <-reply
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return Inbox{}, ctx.Err()
		}
		err = <-reply
	}
	if err != nil {
		return Inbox{}, err
	}
	return inbox, nil
}

func (n *Notifier) Subscribe(ctx context.Context, id SessionID, pollID int64) error {
	return n.call(ctx, func(r *Registry) error {
		return r.Subscribe(id, pollID)
	})
}

func (n *Notifier) Unsubscribe(ctx context.Context, id SessionID, pollID int64) error {
	return n.call(ctx, func(r *Registry) error {
		return r.Unsubscribe(id, pollID)
	})
}

func (n *Notifier) Switch(ctx context.Context, id SessionID, pollID int64) error {
	return n.call(ctx, func(r *Registry) error {
		return r.Switch(id, pollID)
	})
}

// Drop removes a session and all its subscriptions. Dropping an unknown or
// already dropped session is not an error.
func (n *Notifier) Drop(ctx context.Context, id SessionID) error {
	return n.call(ctx, func(r *Registry) error {
		r.Drop(id)
		return nil
	})
}

// Publish hands a poll change to the notifier. It returns once the event is
// queued; fan-out happens on the notifier goroutine. An event accepted
// before shutdown is still fanned out to the sessions registered at that
// point, ahead of their queues closing. After shutdown Publish returns
// ErrNotifierClosed.
func (n *Notifier) Publish(ctx context.Context, ev models.PollChangedEvent) error {
	return n.enqueue(ctx, func(r *Registry) {
		delivered, lost := r.Publish(ev)
		slog.Debug("poll change published",
			"poll_id", ev.PollID,
			"reason", ev.Reason,
			"delivered", delivered,
			"lost", lost,
		)
	})
}

func (n *Notifier) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := n.call(ctx, func(r *Registry) error {
		st = r.Stats()
		return nil
	})
	return st, err
}

// Subscribers lists the sessions currently subscribed to pollID
func (n *Notifier) Subscribers(ctx context.Context, pollID int64) ([]SessionID, error) {
	var ids []SessionID
	err := n.call(ctx, func(r *Registry) error {
		ids = r.Subscribers(pollID)
		return nil
	})
	return ids, err
}
