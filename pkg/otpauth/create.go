package otpauth

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/compact"
	"github.com/dmitrymomot/cookieauth/pkg/logger"
	"github.com/dmitrymomot/cookieauth/pkg/otptoken"
	"github.com/dmitrymomot/cookieauth/pkg/replayid"
)

// Create starts or extends an OTP flow for credential. With no usable
// cookie a fresh single-entry list is issued. With an existing cookie
// the credential either already holds a pending code, in which case its
// deadlines are echoed without sending again, or a new code is sent and
// appended, subject to the per-cookie credential cap.
func (s *Service) Create(ctx context.Context, cookie, credential string) (Result, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" || !s.credValid(credential) {
		return failure(), nil
	}

	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return s.createFresh(ctx, credential)
	}
	env, plaintext, ok, err := s.open(ctx, cookie)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// An undecryptable cookie on create is not worth punishing;
		// the flow simply starts over.
		return s.createFresh(ctx, credential)
	}

	entries, replayID, err := otptoken.DecodeList(plaintext)
	if err != nil {
		return s.reject(ctx, env, ""), nil
	}
	if len(entries) > s.cfg.MaxCredentials {
		return s.reject(ctx, env, replayID), nil
	}

	now := s.now()
	st, err := s.walk(entries, credential, now)
	if err != nil {
		return s.reject(ctx, env, replayID), nil
	}
	if st.maxExpires.IsZero() {
		// Every entry has expired; drop the stale id and start over.
		if _, err := s.ids.Delete(ctx, replayID); err != nil {
			return Result{}, err
		}
		return s.createFresh(ctx, credential)
	}

	env, err = s.rekey(ctx, env)
	if err != nil {
		return Result{}, err
	}

	if st.current != nil {
		return s.echoExisting(ctx, env, st, replayID, now)
	}
	if len(st.kept) >= s.cfg.MaxCredentials {
		return failure(), nil
	}
	return s.appendCredential(ctx, env, st, replayID, credential, now)
}

// echoExisting rewrites the cookie for a credential that already holds a
// pending code. No code is sent; the response repeats the deadlines so
// the client can render the waiting state.
func (s *Service) echoExisting(ctx context.Context, env envelopeRef, st listState, replayID string, now time.Time) (Result, error) {
	newID, err := replayid.Rotate(ctx, s.ids, replayID, st.maxExpires)
	if err != nil {
		return Result{}, err
	}
	if newID == "" {
		return clearFailure(), nil
	}

	value, err := s.seal(env, append(st.kept, s.codec.Encode(*st.current)), newID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:       StatusOK,
		Body:         s.deadlines(*st.current, now),
		Cookie:       value,
		CookieSet:    true,
		CookieMaxAge: st.maxExpires.Sub(now),
	}, nil
}

// appendCredential sends a code to a credential new to this cookie and
// appends its token. The send happens before any replay state changes
// so a delivery failure leaves everything untouched.
func (s *Service) appendCredential(ctx context.Context, env envelopeRef, st listState, replayID, credential string, now time.Time) (Result, error) {
	code, err := s.codec.NewCode()
	if err != nil {
		return Result{}, err
	}
	if err := s.sender.SendCode(ctx, credential, code); err != nil {
		s.log.ErrorContext(ctx, "failed to deliver one-time code", logger.Error(err))
		return failure(), nil
	}

	expiresAt := s.expiryFor(now)
	newID, err := replayid.Rotate(ctx, s.ids, replayID, st.maxExpires)
	if err != nil {
		return Result{}, err
	}
	if newID == "" {
		return clearFailure(), nil
	}
	// The new entry expires last, so the id expiry follows it.
	if ok, err := s.ids.UpdateExpiry(ctx, newID, st.maxExpires, expiresAt); err != nil {
		return Result{}, err
	} else if !ok {
		return clearFailure(), nil
	}

	token := otptoken.Token{
		Credential:       credential,
		ExpiresAt:        expiresAt,
		Code:             code,
		Attempts:         s.cfg.MaxAttempts,
		ResendBlockUntil: now.Add(s.cfg.ResendBlock),
	}
	value, err := s.seal(env, append(st.kept, s.codec.Encode(token)), newID)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:       StatusOK,
		Body:         s.deadlines(token, now),
		Cookie:       value,
		CookieSet:    true,
		CookieMaxAge: s.cfg.MaxAge,
	}, nil
}

// createFresh issues a brand new single-entry list under the active
// wrapping key.
func (s *Service) createFresh(ctx context.Context, credential string) (Result, error) {
	code, err := s.codec.NewCode()
	if err != nil {
		return Result{}, err
	}
	if err := s.sender.SendCode(ctx, credential, code); err != nil {
		s.log.ErrorContext(ctx, "failed to deliver one-time code", logger.Error(err))
		return failure(), nil
	}

	now := s.now()
	expiresAt := s.expiryFor(now)
	id, err := replayid.Issue(ctx, s.ids, expiresAt)
	if err != nil {
		return Result{}, err
	}
	env, err := s.newEnvelope(ctx)
	if err != nil {
		return Result{}, err
	}

	token := otptoken.Token{
		Credential:       credential,
		ExpiresAt:        expiresAt,
		Code:             code,
		Attempts:         s.cfg.MaxAttempts,
		ResendBlockUntil: now.Add(s.cfg.ResendBlock),
	}
	value, err := s.seal(env, []string{s.codec.Encode(token)}, id)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status:       StatusOK,
		Body:         s.deadlines(token, now),
		Cookie:       value,
		CookieSet:    true,
		CookieMaxAge: s.cfg.MaxAge,
	}, nil
}

// deadlines renders a token's remaining lifetime and, while active, its
// resend cool-down as base-36 second counts.
func (s *Service) deadlines(t otptoken.Token, now time.Time) string {
	body := compact.Encode(ceilSeconds(t.ExpiresAt.Sub(now)))
	if t.ResendBlockUntil.After(now) {
		body += "," + compact.Encode(ceilSeconds(t.ResendBlockUntil.Sub(now)))
	}
	return body
}
