package services

import (
	"context"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// Storage ports, declared where they are consumed. storage.SQLiteRepository
// satisfies all of them; tests substitute in-memory fakes.

// UserStore is the durable user name -> credential mapping.
type UserStore interface {
	CreateUser(ctx context.Context, userName, passwordDigest string) (int64, error)
	GetUserByName(ctx context.Context, userName string) (*core.User, error)
	GetUserByID(ctx context.Context, id int64) (*core.User, error)
}

// SessionStore holds session rows keyed by (token, owner).
type SessionStore interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, sessionID string, userID int64) (*core.Session, error)
	DeleteSession(ctx context.Context, sessionID string, userID int64) (int64, error)
	ReplaceSession(ctx context.Context, oldID string, userID int64, next core.Session) error
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EntryStore is the durable ledger.
type EntryStore interface {
	CreateEntry(ctx context.Context, e core.Entry) (int64, error)
	ListEntries(ctx context.Context, userID int64, start, end time.Time) ([]core.Entry, error)
	ListAllEntries(ctx context.Context, userID int64) ([]core.Entry, error)
	DeleteEntry(ctx context.Context, id int64) (int64, error)
	DeleteEntryOwned(ctx context.Context, id, userID int64) (int64, error)
	DistinctCategories(ctx context.Context, userID int64) ([]string, error)
	SumByCategory(ctx context.Context, userID int64, start, end time.Time) ([]core.CategorySum, error)
}

// Clock supplies the current instant. Every service takes one so expiry and
// window clamping are deterministic under test.
type Clock func() time.Time

// TokenSource generates opaque session tokens from the [a-z0-9] alphabet.
type TokenSource interface {
	Generate(length int) (string, error)
}

// PasswordDigester is the opaque one-way digest collaborator. The store only
// ever sees its output, never a plaintext password.
type PasswordDigester interface {
	Digest(password string) string
}

// CredentialVerifier is what the session manager needs from the credential
// side: identity resolution and password verification.
type CredentialVerifier interface {
	Verify(ctx context.Context, userName, password string) (*core.User, error)
	FindByUserName(ctx context.Context, userName string) (*core.User, error)
}

// EventPublisher broadcasts entry lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishEntryCreated(ctx context.Context, e core.Entry) error
	PublishEntryDeleted(ctx context.Context, entryID, userID int64) error
}
