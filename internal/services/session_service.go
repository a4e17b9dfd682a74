package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

const (
	// DefaultSessionLifetime is the fixed validity window after which a token
	// is expired regardless of explicit deletion.
	DefaultSessionLifetime = time.Hour

	// DefaultTokenLength is the session token length in characters.
	DefaultTokenLength = 100
)

// SessionService issues, validates, rotates and revokes session tokens.
//
// Sessions are double-keyed: every operation takes the pair (sessionID,
// userName), in that order, and a session only resolves when both the token
// and the presented user name match the stored row. The single-key
// alternative would work, but the double key is kept so a token leaked
// without its user name is useless on its own.
type SessionService struct {
	creds       CredentialVerifier
	sessions    SessionStore
	clock       Clock
	tokens      TokenSource
	lifetime    time.Duration
	tokenLength int
}

func NewSessionService(creds CredentialVerifier, sessions SessionStore, clock Clock, tokens TokenSource, lifetime time.Duration, tokenLength int) *SessionService {
	if clock == nil {
		clock = time.Now
	}
	if tokens == nil {
		tokens = CryptoTokenSource{}
	}
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	if tokenLength <= 0 {
		tokenLength = DefaultTokenLength
	}
	return &SessionService{
		creds:       creds,
		sessions:    sessions,
		clock:       clock,
		tokens:      tokens,
		lifetime:    lifetime,
		tokenLength: tokenLength,
	}
}

// Lifetime returns the configured session validity window.
func (s *SessionService) Lifetime() time.Duration {
	return s.lifetime
}

// Authenticate verifies credentials and issues a fresh session. Missing
// credentials and failed verification both surface as core.ErrAuthFailed.
func (s *SessionService) Authenticate(ctx context.Context, userName, password string) (*core.TokenGrant, error) {
	user, err := s.creds.Verify(ctx, userName, password)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user.ID)
}

// Validate reports whether the (sessionID, userName) pair resolves to a
// session still inside its validity window. Absent arguments, unknown pairs,
// expired sessions and store faults all yield false; store faults are logged
// rather than surfaced, matching the boundary's boolean contract.
func (s *SessionService) Validate(ctx context.Context, sessionID, userName string) bool {
	if sessionID == "" || userName == "" {
		return false
	}

	user, err := s.creds.FindByUserName(ctx, userName)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.ErrorContext(ctx, "Session validation store fault", "error", err)
		}
		return false
	}

	sess, err := s.sessions.GetSession(ctx, sessionID, user.ID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.ErrorContext(ctx, "Session validation store fault", "error", err)
		}
		return false
	}

	return !sess.Expired(s.clock(), s.lifetime)
}

// Rotate replaces a currently-valid session with a fresh one for the same
// user. The old token is invalid the moment rotation succeeds; a stale or
// foreign token fails without issuing anything.
func (s *SessionService) Rotate(ctx context.Context, sessionID, userName string) (*core.TokenGrant, error) {
	if !s.Validate(ctx, sessionID, userName) {
		return nil, core.ErrAuthFailed
	}

	user, err := s.creds.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrAuthFailed
		}
		return nil, err
	}

	token, err := s.tokens.Generate(s.tokenLength)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	err = s.sessions.ReplaceSession(ctx, sessionID, user.ID, core.Session{
		ID:        token,
		UserID:    user.ID,
		CreatedOn: now,
	})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between Validate and the swap; no new session issued.
			return nil, core.ErrAuthFailed
		}
		return nil, err
	}

	return &core.TokenGrant{SessionID: token, ExpiresOn: now.Add(s.lifetime)}, nil
}

// Revoke deletes the matching session. Revoking an already-gone session is
// not an error; it simply reports false.
func (s *SessionService) Revoke(ctx context.Context, sessionID, userName string) (bool, error) {
	if sessionID == "" || userName == "" {
		return false, nil
	}

	user, err := s.creds.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	n, err := s.sessions.DeleteSession(ctx, sessionID, user.ID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionService) issue(ctx context.Context, userID int64) (*core.TokenGrant, error) {
	token, err := s.tokens.Generate(s.tokenLength)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	sess := core.Session{ID: token, UserID: userID, CreatedOn: now}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	return &core.TokenGrant{SessionID: token, ExpiresOn: now.Add(s.lifetime)}, nil
}
