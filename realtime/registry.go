// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/livepoll/models"
)

var ErrUnknownSession = errors.New("unknown session")

// Registry maps polls to subscribed sessions and sessions to their polls.
// The two directions are kept as mutual inverses. Registry is not safe for
// concurrent use; the Notifier owns one and serializes access to it.
type Registry struct {
	sessions map[SessionID]*Session
	byPoll   map[int64]map[SessionID]struct{}

	evictSlow bool
}

func NewRegistry(evictSlow bool) *Registry {
	return &Registry{
		sessions:  make(map[SessionID]*Session),
		byPoll:    make(map[int64]map[SessionID]struct{}),
		evictSlow: evictSlow,
	}
}

func (r *Registry) add(s *Session) error {
	if _, ok := r.sessions[s.id]; ok {
		return errors.New("duplicate session id")
	}
	r.sessions[s.id] = s
	slog.Info("session registered", "session_id", s.id, "identity", s.identity)
	return nil
}

// Subscribe adds the (session, poll) pair. Subscribing twice is the same as
// once. A "subscribed" frame is queued for the session on every call so a
// client always learns when to re-pull state.
func (r *Registry) Subscribe(id SessionID, pollID int64) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}

	s.polls[pollID] = struct{}{}
	subs, ok := r.byPoll[pollID]
	if !ok {
		subs = make(map[SessionID]struct{})
		r.byPoll[pollID] = subs
	}
	subs[id] = struct{}{}

	r.deliver(s, Frame{Type: FrameSubscribed, PollID: pollID})
	return nil
}

// Unsubscribe removes the pair; no-op if absent
func (r *Registry) Unsubscribe(id SessionID, pollID int64) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	if _, ok := s.polls[pollID]; !ok {
		return nil
	}

	r.unlink(id, pollID)
	delete(s.polls, pollID)
	r.deliver(s, Frame{Type: FrameUnsubscribed, PollID: pollID})
	return nil
}

// Switch leaves every poll the session follows and subscribes it to pollID
func (r *Registry) Switch(id SessionID, pollID int64) error {
	s, ok := r.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	for p := range s.polls {
		if p == pollID {
			continue
		}
		r.unlink(id, p)
		delete(s.polls, p)
	}
	return r.Subscribe(id, pollID)
}

// Drop removes the session and every subscription it held, then closes its
// outbound channel. Returns false if the session was already gone.
func (r *Registry) Drop(id SessionID) bool {
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	for p := range s.polls {
		r.unlink(id, p)
	}
	delete(r.sessions, id)
	close(s.out)

	slog.Info("session dropped",
		"session_id", id,
		"connected", humanize.Time(s.connectedAt),
		"dropped_frames", humanize.Comma(s.dropped),
	)
	return true
}

// Publish queues a poll_changed frame for every session subscribed to the
// event's poll. Delivery never blocks: a full queue loses that frame and,
// when eviction is on, the session is dropped.
func (r *Registry) Publish(ev models.PollChangedEvent) (delivered, lost int) {
	subs := r.byPoll[ev.PollID]
	if len(subs) == 0 {
		return 0, 0
	}

	f := Frame{Type: FramePollChanged, PollID: ev.PollID, Reason: ev.Reason}
	var slow []SessionID
	for id := range subs {
		s := r.sessions[id]
		if s.offer(f) {
			delivered++
			continue
		}
		lost++
		slog.Warn("delivery failed, session queue full",
			"session_id", id,
			"poll_id", ev.PollID,
			"reason", ev.Reason,
		)
		slow = append(slow, id)
	}

	if r.evictSlow {
		for _, id := range slow {
			r.Drop(id)
		}
	}
	return delivered, lost
}

// DropAll removes every session; used on shutdown
func (r *Registry) DropAll() {
	for id := range r.sessions {
		r.Drop(id)
	}
}

// deliver queues a control frame; losing it follows the same policy as Publish
func (r *Registry) deliver(s *Session, f Frame) {
	if s.offer(f) {
		return
	}
	slog.Warn("delivery failed, session queue full", "session_id", s.id, "frame", f.Type)
	if r.evictSlow {
		r.Drop(s.id)
	}
}

func (r *Registry) unlink(id SessionID, pollID int64) {
	subs := r.byPoll[pollID]
	delete(subs, id)
	if len(subs) == 0 {
		delete(r.byPoll, pollID)
	}
}

// Subscribers lists the sessions subscribed to pollID, sorted
func (r *Registry) Subscribers(pollID int64) []SessionID {
	ids := make([]SessionID, 0, len(r.byPoll[pollID]))
	for id := range r.byPoll[pollID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Subscriptions lists the polls a session follows, sorted
func (r *Registry) Subscriptions(id SessionID) []int64 {
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	polls := make([]int64, 0, len(s.polls))
	for p := range s.polls {
		polls = append(polls, p)
	}
	sort.Slice(polls, func(i, j int) bool { return polls[i] < polls[j] })
	return polls
}

// Stats is a snapshot of registry size
type Stats struct {
	Sessions      int `json:"sessions"`
	Polls         int `json:"polls"`
	Subscriptions int `json:"subscriptions"`
}

func (r *Registry) Stats() Stats {
	st := Stats{Sessions: len(r.sessions), Polls: len(r.byPoll)}
	for _, subs := range r.byPoll {
		st.Subscriptions += len(subs)
	}
	return st
}
