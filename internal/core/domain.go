package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a day-resolution event date. It is distinct from the write
	// timestamp stamped on an entry at creation time.
	Date struct {
		time.Time
	}

	// User is a registered account. UserName is unique and immutable after
	// registration; PasswordDigest is the one-way digest of the password,
	// never the plaintext.
	User struct {
		ID             int64
		UserName       string
		PasswordDigest string
	}

	// Session binds an opaque random token to its owning user. A session is
	// never mutated in place: rotation deletes the old row and inserts a new
	// one, and expiry is time-driven off CreatedOn.
	Session struct {
		ID        string // opaque token, primary key
		UserID    int64
		CreatedOn time.Time
	}

	// Entry is a single dated, categorized ledger record.
	Entry struct {
		ID          int64
		UserID      int64
		Title       string
		Price       int64 // integer currency units, whole or minor
		Date        Date
		CreatedOn   time.Time
		Category    string
		CreatedBy   int64 // equals UserID; reserved for delegation
		Description string
	}

	// TokenGrant is the result of a successful authentication or rotation.
	TokenGrant struct {
		SessionID string
		ExpiresOn time.Time
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyUserName = errors.New("empty user name")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateFromMillis converts a Unix-millisecond timestamp to a Date.
func DateFromMillis(ms int64) Date {
	return Date{Time: time.UnixMilli(ms).UTC()}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Millis returns the date as Unix milliseconds, the storage representation.
func (d Date) Millis() int64 {
	return d.UnixMilli()
}

// Expired reports whether the session's validity window has elapsed at now.
// A session is valid only while now - CreatedOn < lifetime.
func (s Session) Expired(now time.Time, lifetime time.Duration) bool {
	return now.Sub(s.CreatedOn) >= lifetime
}

func (e Entry) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 1000 {
		return errors.New("description too long (max 1000 characters)")
	}
	return nil
}
