// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/livepoll/middleware"
)

var (
	errEvicted  = errors.New("session removed from registry")
	errShutdown = errors.New("notifier shut down")
)

// Control frames accepted from clients
const (
	controlSubscribe   = "subscribe"
	controlUnsubscribe = "unsubscribe"
	controlSwitch      = "switch"
)

const maxControlFrame = 4096

type controlMessage struct {
	Type   string `json:"type"`
	PollID int64  `json:"poll_id"`
}

// HandlerOptions tunes the websocket side of a connection
type HandlerOptions struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
}

// Handler upgrades realtime connections and relays frames between the
// socket and the notifier.
type Handler struct {
	notifier *Notifier
	checker  middleware.IdentityChecker
	opts     HandlerOptions
}

func NewHandler(n *Notifier, checker middleware.IdentityChecker, opts HandlerOptions) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Handler{notifier: n, checker: checker, opts: opts}
}

// ServeHTTP handles GET /api/polls/{pollId}/ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pollID, err := strconv.ParseInt(r.PathValue("pollId"), 10, 64)
	if err != nil || pollID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return
	}

	identity, err := h.checker.IdentityFromRequest(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or missing bearer token")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error
		slog.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxControlFrame)

	h.serve(r.Context(), conn, identity, pollID)
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, identity string, pollID int64) {
	inbox, err := h.notifier.Register(ctx, identity)
	if err != nil {
		slog.Error("failed to register session", "error", err)
		conn.Close(websocket.StatusTryAgainLater, "realtime unavailable")
		return
	}
	defer h.onDisconnect(inbox.ID)

	if err := h.notifier.Subscribe(ctx, inbox.ID, pollID); err != nil {
		slog.Error("failed to subscribe session", "session_id", inbox.ID, "poll_id", pollID, "error", err)
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}

	// The first loop to stop records why; the socket is then closed with a
	// matching status, which also unblocks the reader.
	lctx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	var g errgroup.Group
	g.Go(func() error {
		err := h.writeLoop(lctx, conn, inbox)
		stop(err)
		return err
	})
	g.Go(func() error {
		err := h.readLoop(ctx, lctx, conn, inbox.ID)
		stop(err)
		return err
	})
	if h.opts.PingInterval > 0 {
		g.Go(func() error {
			err := h.pingLoop(lctx, conn)
			stop(err)
			return err
		})
	}

	<-lctx.Done()
	cause := context.Cause(lctx)
	status, reason := closeStatus(cause)
	conn.Close(status, reason)
	g.Wait()

	slog.Info("connection closed", "session_id", inbox.ID, "status", status, "cause", cause)
}

// onDisconnect runs exactly once per registered connection, whatever ended it
func (h *Handler) onDisconnect(id SessionID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.notifier.Drop(ctx, id); err != nil && !errors.Is(err, ErrNotifierClosed) {
		slog.Error("failed to drop session", "session_id", id, "error", err)
	}
}

// writeLoop drains the session's queue onto the socket
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, inbox Inbox) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-inbox.Frames:
			if !ok {
				return h.closedCause()
			}
			wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := wsjson.Write(wctx, conn, f)
			cancel()
			if err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}
	}
}

// readLoop forwards control frames to the notifier. Frames it does not
// understand are ignored. Reads use connCtx so that stopping the loops does
// not race the close handshake; the loop ends when the socket is closed.
func (h *Handler) readLoop(connCtx, ctx context.Context, conn *websocket.Conn, id SessionID) error {
	for {
		typ, data, err := conn.Read(connCtx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ignoring malformed frame", "session_id", id, "error", err)
			continue
		}
		if msg.PollID <= 0 {
			continue
		}

		switch msg.Type {
		case controlSubscribe:
			err = h.notifier.Subscribe(ctx, id, msg.PollID)
		case controlUnsubscribe:
			err = h.notifier.Unsubscribe(ctx, id, msg.PollID)
		case controlSwitch:
			err = h.notifier.Switch(ctx, id, msg.PollID)
		default:
			slog.Debug("ignoring unknown frame", "session_id", id, "type", msg.Type)
			continue
		}
		switch {
		case errors.Is(err, ErrNotifierClosed):
			return errShutdown
		case errors.Is(err, ErrUnknownSession):
			return errEvicted
		case err != nil:
			return err
		}
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	t := time.NewTicker(h.opts.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// closedCause tells eviction apart from shutdown once the queue is closed
func (h *Handler) closedCause() error {
	select {
	case <-h.notifier.Done():
		return errShutdown
	default:
		return errEvicted
	}
}

func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case errors.Is(err, errEvicted):
		return websocket.StatusPolicyViolation, "too slow"
	case errors.Is(err, errShutdown):
		return websocket.StatusGoingAway, "server shutting down"
	default:
		return websocket.StatusNormalClosure, ""
	}
}
