package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// LedgerService records and serves dated, categorized entries, and publishes
// entry lifecycle events when a publisher is wired. Event publish failures
// never fail the request; the entry is already durable.
type LedgerService struct {
	entries            EntryStore
	events             EventPublisher
	clock              Clock
	scopeDeleteToOwner bool
}

// NewEntry carries the caller-supplied fields of an entry to record.
// CreatedOn and CreatedBy are stamped server-side.
type NewEntry struct {
	Title       string
	Price       int64
	Date        core.Date
	Category    string
	Description string
}

func NewLedgerService(entries EntryStore, events EventPublisher, clock Clock, scopeDeleteToOwner bool) *LedgerService {
	if clock == nil {
		clock = time.Now
	}
	return &LedgerService{
		entries:            entries,
		events:             events,
		clock:              clock,
		scopeDeleteToOwner: scopeDeleteToOwner,
	}
}

// AddEntry validates and records an entry owned by ownerID. The category
// defaults to the empty string; CreatedOn is the write time, distinct from
// the event date.
func (s *LedgerService) AddEntry(ctx context.Context, ownerID int64, in NewEntry) (int64, error) {
	e := core.Entry{
		UserID:      ownerID,
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Date:        in.Date,
		CreatedOn:   s.clock(),
		Category:    in.Category,
		CreatedBy:   ownerID,
		Description: in.Description,
	}
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %s", core.ErrValidation, err)
	}

	id, err := s.entries.CreateEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save entry: %w", err)
	}

	if s.events != nil {
		e.ID = id
		if err := s.events.PublishEntryCreated(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to publish entry created event",
				"id", id, "user_id", ownerID, "error", err)
		}
	}

	return id, nil
}

// ListEntries returns the owner's entries dated in [start, end). Callers must
// not assume any ordering.
func (s *LedgerService) ListEntries(ctx context.Context, ownerID int64, start, end time.Time) ([]core.Entry, error) {
	return s.entries.ListEntries(ctx, ownerID, start, end)
}

// ListMonth returns the owner's entries for a calendar month.
func (s *LedgerService) ListMonth(ctx context.Context, ownerID int64, year, month int) ([]core.Entry, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month must be 1-12, got %d", core.ErrValidation, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return s.entries.ListEntries(ctx, ownerID, start, start.AddDate(0, 1, 0))
}

func (s *LedgerService) ListAllEntries(ctx context.Context, ownerID int64) ([]core.Entry, error) {
	return s.entries.ListAllEntries(ctx, ownerID)
}

// DeleteEntry removes an entry by id and reports whether a row went away.
// When delete scoping is on, only the owner's rows are deletable; unscoped
// mode preserves the permissive delete-by-id-only behavior.
func (s *LedgerService) DeleteEntry(ctx context.Context, ownerID, entryID int64) (bool, error) {
	var (
		n   int64
		err error
	)
	if s.scopeDeleteToOwner {
		n, err = s.entries.DeleteEntryOwned(ctx, entryID, ownerID)
	} else {
		n, err = s.entries.DeleteEntry(ctx, entryID)
	}
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if s.events != nil {
		if err := s.events.PublishEntryDeleted(ctx, entryID, ownerID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish entry deleted event",
				"id", entryID, "user_id", ownerID, "error", err)
		}
	}

	return true, nil
}

// Categories returns the distinct category labels the owner has used.
func (s *LedgerService) Categories(ctx context.Context, ownerID int64) ([]string, error) {
	return s.entries.DistinctCategories(ctx, ownerID)
}
