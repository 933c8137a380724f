// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/models"
)

// SessionID identifies one live connection. Random UUIDs, never reused.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func (id SessionID) String() string { return string(id) }

// Frame types pushed to clients
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FramePollChanged  = "poll_changed"
)

// Frame is the JSON payload written to a client. A poll_changed frame is a
// signal to re-fetch the poll; it does not carry results.
type Frame struct {
	Type   string              `json:"type"`
	PollID int64               `json:"poll_id"`
	Reason models.ChangeReason `json:"reason,omitempty"`
}

// Session is one connection's state inside the registry. Only the registry
// goroutine touches it; connection handlers keep the ID and the receive
// side of out.
type Session struct {
	id          SessionID
	identity    string
	out         chan Frame
	polls       map[int64]struct{}
	connectedAt time.Time
	dropped     int64
}

func newSession(identity string, buffer int) *Session {
	return &Session{
		id:          NewSessionID(),
		identity:    identity,
		out:         make(chan Frame, buffer),
		polls:       make(map[int64]struct{}),
		connectedAt: time.Now(),
	}
}

// offer queues f without blocking; false means the buffer is full
func (s *Session) offer(f Frame) bool {
	select {
	case s.out <- f:
		return true
	default:
		s.dropped++
		return false
	}
}

// Inbox is what a connection handler holds after registering: the session
// ID and the receive side of its outbound queue. The channel is closed when
// the session leaves the registry.
type Inbox struct {
	ID     SessionID
	Frames <-chan Frame
}
