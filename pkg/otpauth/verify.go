package otpauth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/compact"
	"github.com/dmitrymomot/cookieauth/pkg/otptoken"
	"github.com/dmitrymomot/cookieauth/pkg/replayid"
)

// Verify checks a submitted code against the targeted token. An empty
// credential targets the most recently appended entry. On success the
// replay id is consumed, the cookie is cleared, and the verified
// credential is handed back for the caller to start a session with. A
// wrong code burns an attempt, may schedule a cool-down, and rewrites
// the cookie; exhausting the budget blocks the token for the rest of
// its life.
func (s *Service) Verify(ctx context.Context, cookie, credential, code string) (VerifyResult, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !s.codec.ValidCode(code) {
		return VerifyResult{Result: failure()}, nil
	}
	credential = strings.TrimSpace(credential)
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return VerifyResult{Result: failure()}, nil
	}

	env, plaintext, ok, err := s.open(ctx, cookie)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{Result: clearFailure()}, nil
	}

	entries, replayID, err := otptoken.DecodeList(plaintext)
	if err != nil {
		return VerifyResult{Result: s.reject(ctx, env, "")}, nil
	}
	if len(entries) > s.cfg.MaxCredentials {
		return VerifyResult{Result: s.reject(ctx, env, replayID)}, nil
	}

	now := s.now()
	st, err := s.walk(entries, credential, now)
	if err != nil {
		return VerifyResult{Result: s.reject(ctx, env, replayID)}, nil
	}
	if st.current == nil || st.current.Blocked() {
		return VerifyResult{Result: failure()}, nil
	}
	if st.current.CodeBlockUntil.After(now) {
		// No attempt is consumed while the cool-down runs.
		return VerifyResult{Result: Result{
			Status: StatusForbidden,
			Body:   compact.Encode(ceilSeconds(st.current.CodeBlockUntil.Sub(now))),
		}}, nil
	}
	st.current.CodeBlockUntil = time.Time{}

	if subtle.ConstantTimeCompare([]byte(code), []byte(st.current.Code)) != 1 {
		return s.verifyFailed(ctx, env, st, replayID, now)
	}

	ok, err = s.ids.CompareAndDelete(ctx, replayID, st.maxExpires)
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		// The id was already consumed or reassigned: a replayed cookie.
		return VerifyResult{Result: clearFailure()}, nil
	}
	return VerifyResult{
		Result:     Result{Status: StatusNoContent, CookieClear: true},
		Verified:   true,
		Credential: st.current.Credential,
	}, nil
}

// verifyFailed burns an attempt and rewrites the cookie. Falling to the
// block threshold schedules a cool-down, unless so little lifetime would
// remain past it that the token is blocked outright.
func (s *Service) verifyFailed(ctx context.Context, env envelopeRef, st listState, replayID string, now time.Time) (VerifyResult, error) {
	env, err := s.rekey(ctx, env)
	if err != nil {
		return VerifyResult{}, err
	}
	newID, err := replayid.Rotate(ctx, s.ids, replayID, st.maxExpires)
	if err != nil {
		return VerifyResult{}, err
	}
	if newID == "" {
		return VerifyResult{Result: clearFailure()}, nil
	}

	status := StatusForbidden
	body := ""
	st.current.Attempts--
	switch {
	case st.current.Attempts < 1:
		st.current.Block()
		status = StatusNotFound
	case st.current.Attempts <= s.cfg.BlockThreshold:
		until := now.Add(s.cfg.CodeBlock)
		if st.current.ExpiresAt.Sub(until) <= s.cfg.BlockSafetyMargin {
			st.current.Block()
			status = StatusNotFound
		} else {
			st.current.CodeBlockUntil = until
			body = compact.Encode(ceilSeconds(until.Sub(now)))
		}
	}

	value, err := s.seal(env, append(st.kept, s.codec.Encode(*st.current)), newID)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{Result: Result{
		Status:       status,
		Body:         body,
		Cookie:       value,
		CookieSet:    true,
		CookieMaxAge: st.maxExpires.Sub(now),
	}}, nil
}
