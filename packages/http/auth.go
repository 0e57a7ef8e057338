package http

import (
	"context"
	"net/http"
	"time"
)

// negotiate sends ex and answers a digest challenge once. The retry reuses
// the same exchange with an Authorization header added. A 401 on the retry
// is final. timeout is the caller's deadline measured from ex.started; once
// it has passed nobody is waiting for the result, so the retry is skipped.
func (c *Client) negotiate(ctx context.Context, ex *exchange, timeout time.Duration) (*rawResponse, error) {
	raw, err := c.pool.send(ctx, ex, "")
	if err != nil {
		return nil, err
	}
	if raw.StatusCode != http.StatusUnauthorized {
		return raw, nil
	}

	if ex.username == "" && ex.password == "" {
		return nil, &AuthError{
			StatusCode: raw.StatusCode,
			Message:    "authentication required",
			Response:   normalize(raw, ex.binary),
		}
	}

	challenge, err := ParseChallenge(raw.Header.Get("WWW-Authenticate"))
	if err != nil {
		return nil, &AuthError{
			StatusCode: raw.StatusCode,
			Message:    "cannot answer authentication challenge",
			Response:   normalize(raw, ex.binary),
			Err:        err,
		}
	}

	header, err := authorize(ex, challenge, &AuthAttempt{})
	if err != nil {
		return nil, &AuthError{StatusCode: raw.StatusCode, Message: "cannot answer authentication challenge", Err: err}
	}

	if time.Since(ex.started) >= timeout {
		return nil, &TimeoutError{Timeout: timeout}
	}

	c.logger.Debug().
		Str("uri", ex.uri).
		Str("realm", challenge.Realm).
		Msg("answering digest challenge")

	retry, err := c.pool.send(ctx, ex, header)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		return nil, &AuthError{
			StatusCode: retry.StatusCode,
			Message:    "digest authentication rejected",
			Response:   normalize(retry, ex.binary),
		}
	}

	return retry, nil
}

// authorize computes the Authorization header for one challenge
func authorize(ex *exchange, challenge *DigestChallenge, attempt *AuthAttempt) (string, error) {
	qop, err := selectQop(challenge.Qop)
	if err != nil {
		return "", err
	}

	nc, cnonce, err := attempt.next()
	if err != nil {
		return "", err
	}

	auth := &DigestAuth{
		Username:  ex.username,
		Password:  ex.password,
		Method:    ex.method,
		URI:       ex.uri,
		Challenge: challenge,
		Qop:       qop,
		Nc:        nc,
		Cnonce:    cnonce,
	}
	return auth.BuildAuthorizationHeader()
}
