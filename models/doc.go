// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreatePollRequest: title, questions (each with text and option labels)
  - VoteRequest: email, option_id (number or numeric string)
  - PollOwnerRequest: email of the poll creator (close and reset)

# Response Types

  - CreatePollResponse: poll_id
  - MessageResponse: message
  - AttemptedResponse: poll_id, question_ids
  - ErrorResponse: error, message

# Domain Types

  - Poll: title, creator and open/closed state
  - Question: belongs to a poll, holds options
  - PollOption: option label and its score counter
  - Vote: one answer per (question, voter)
  - PollDetail: poll with questions, options and scores

# Events

PollChangedEvent is what the vote, close and reset paths hand to the
realtime notifier after committing:

	models.PollChangedEvent{PollID: 7, Reason: models.ReasonVoteCast}

Reasons:

	ReasonVoteCast = "vote_cast"
	ReasonClosed   = "closed"
	ReasonReset    = "reset"
*/
package models
