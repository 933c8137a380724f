// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies the bearer identity attached to API calls.

Identities are email addresses carried as the subject of an HS256 JWT. The
passwordless login ceremony that mints them lives outside this service;
this package only checks them:

	v := auth.NewVerifier(cfg.JWTSecret)
	email, err := v.IdentityFromRequest(r)

Tokens are read from "Authorization: Bearer <token>" or, for websocket
upgrades, from the token query parameter. Tokens must carry an expiry.

Errors are ErrMissingToken (nothing presented) and ErrInvalidToken
(malformed, expired, wrong signature or algorithm, empty subject).
*/
package auth
