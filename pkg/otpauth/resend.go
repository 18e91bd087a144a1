package otpauth

import (
	"context"
	"strings"

	"github.com/dmitrymomot/cookieauth/pkg/compact"
	"github.com/dmitrymomot/cookieauth/pkg/logger"
	"github.com/dmitrymomot/cookieauth/pkg/otptoken"
	"github.com/dmitrymomot/cookieauth/pkg/replayid"
)

// Resend sends a fresh code for an existing token. An empty credential
// targets the most recently appended entry. The token's expiry and
// attempt budget carry over unchanged; only the code and the resend
// cool-down are renewed. Inside the cool-down the call is rejected with
// the remaining wait.
func (s *Service) Resend(ctx context.Context, cookie, credential string) (Result, error) {
	credential = strings.TrimSpace(credential)
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return failure(), nil
	}

	env, plaintext, ok, err := s.open(ctx, cookie)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return clearFailure(), nil
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
	if st.current == nil || st.current.Blocked() {
		return failure(), nil
	}
	if st.current.ResendBlockUntil.After(now) {
		return Result{
			Status: StatusForbidden,
			Body:   compact.Encode(ceilSeconds(st.current.ResendBlockUntil.Sub(now))),
		}, nil
	}

	env, err = s.rekey(ctx, env)
	if err != nil {
		return Result{}, err
	}

	code, err := s.codec.NewCode()
	if err != nil {
		return Result{}, err
	}
	if err := s.sender.SendCode(ctx, st.current.Credential, code); err != nil {
		s.log.ErrorContext(ctx, "failed to deliver one-time code", logger.Error(err))
		return failure(), nil
	}

	newID, err := replayid.Rotate(ctx, s.ids, replayID, st.maxExpires)
	if err != nil {
		return Result{}, err
	}
	if newID == "" {
		return clearFailure(), nil
	}

	st.current.Code = code
	st.current.ResendBlockUntil = now.Add(s.cfg.ResendBlock)

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
