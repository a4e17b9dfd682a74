package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// DefaultMinPasswordLength is the registration password policy floor.
const DefaultMinPasswordLength = 8

// AuthService owns credentials: registration, lookups and password
// verification. It never stores or compares plaintext; passwords are digested
// on the way in and verification compares digests in constant time.
type AuthService struct {
	users             UserStore
	digester          PasswordDigester
	minPasswordLength int
}

func NewAuthService(users UserStore, digester PasswordDigester, minPasswordLength int) *AuthService {
	if minPasswordLength <= 0 {
		minPasswordLength = DefaultMinPasswordLength
	}
	return &AuthService{
		users:             users,
		digester:          digester,
		minPasswordLength: minPasswordLength,
	}
}

// Register creates a user and returns its id. A taken user name surfaces as
// core.ErrConflict; policy violations as core.ErrValidation.
func (s *AuthService) Register(ctx context.Context, userName, password string) (int64, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return 0, fmt.Errorf("%w: user name is required", core.ErrValidation)
	}
	if !s.PasswordAcceptable(password) {
		return 0, fmt.Errorf("%w: password must be at least %d characters", core.ErrValidation, s.minPasswordLength)
	}

	return s.users.CreateUser(ctx, userName, s.digester.Digest(password))
}

func (s *AuthService) FindByUserName(ctx context.Context, userName string) (*core.User, error) {
	if userName == "" {
		return nil, core.ErrNotFound
	}
	return s.users.GetUserByName(ctx, userName)
}

func (s *AuthService) FindByUserID(ctx context.Context, userID int64) (*core.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Verify digests the supplied password and compares it against the stored
// digest. Unknown user and wrong password are indistinguishable to the
// caller, and both cost one digest plus one constant-time comparison.
func (s *AuthService) Verify(ctx context.Context, userName, password string) (*core.User, error) {
	if userName == "" || password == "" {
		return nil, core.ErrAuthFailed
	}

	stored := ""
	user, err := s.users.GetUserByName(ctx, userName)
	switch {
	case errors.Is(err, core.ErrNotFound):
		// fall through with an empty stored digest
	case err != nil:
		return nil, err
	default:
		stored = user.PasswordDigest
	}

	supplied := s.digester.Digest(password)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(stored)) != 1 {
		return nil, core.ErrAuthFailed
	}
	return user, nil
}

// UserNameAvailable reports whether a user name is free for registration.
func (s *AuthService) UserNameAvailable(ctx context.Context, userName string) (bool, error) {
	if strings.TrimSpace(userName) == "" {
		return false, nil
	}
	_, err := s.users.GetUserByName(ctx, userName)
	if errors.Is(err, core.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// PasswordAcceptable reports whether a password meets the length policy.
func (s *AuthService) PasswordAcceptable(password string) bool {
	return len(password) >= s.minPasswordLength
}

// LookupUserName resolves a user id to its user name.
func (s *AuthService) LookupUserName(ctx context.Context, userID int64) (string, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.UserName, nil
}
