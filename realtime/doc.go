// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime pushes poll-change notifications to connected clients.

# Notifier

A single Notifier goroutine owns the Registry of sessions and their poll
subscriptions. Every operation is a command sent to that goroutine, so the
registry needs no locks:

	n := realtime.NewNotifier(realtime.Options{SessionBuffer: 16, EvictSlow: true})
	go n.Run(ctx)

	inbox, _ := n.Register(ctx, "alice@example.com")
	n.Subscribe(ctx, inbox.ID, pollID)
	n.Publish(ctx, models.PollChangedEvent{PollID: pollID, Reason: models.ReasonVoteCast})

Publish only enqueues; it never waits for delivery. When Run returns every
session queue is closed and later calls fail with ErrNotifierClosed.

# Delivery

Each session has a bounded outbound queue. A full queue loses the frame
(and, with EvictSlow, the whole session) instead of holding up other
subscribers. Frames to one session keep publish order.

A notification carries no poll data. Clients treat it as a signal to
re-fetch the poll. Delivery is best-effort, so clients also re-fetch after
each "subscribed" frame, which is queued before any change for that poll.

# WebSocket

Handler serves GET /api/polls/{pollId}/ws. The bearer token may come from
the Authorization header or the token query parameter, since browsers
cannot set headers on websocket requests. Server frames:

	{"type":"subscribed","poll_id":7}
	{"type":"unsubscribed","poll_id":7}
	{"type":"poll_changed","poll_id":7,"reason":"vote_cast"}

Client frames are subscribe, unsubscribe and switch, each with a poll_id.
Anything else is ignored. Evicted sessions are closed with status 1008,
shutdown closes with 1001.
*/
package realtime
