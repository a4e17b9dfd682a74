package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

func TestLedgerService_AddEntry(t *testing.T) {
	store := newMemStore()
	events := &capturedEvents{}
	clock := newFakeClock(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	svc := NewLedgerService(store, events, clock.Now, true)
	ctx := context.Background()

	id, err := svc.AddEntry(ctx, 7, NewEntry{
		Title: "groceries",
		Price: 1200,
		Date:  core.NewDate(2024, 4, 28),
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	e := store.entries[id]
	if e.UserID != 7 || e.CreatedBy != 7 {
		t.Errorf("ownership = {user %d, createdBy %d}, want both 7", e.UserID, e.CreatedBy)
	}
	if e.Category != "" {
		t.Errorf("omitted category = %q, want empty string", e.Category)
	}
	if !e.CreatedOn.Equal(clock.Now()) {
		t.Errorf("CreatedOn = %v, want server time %v", e.CreatedOn, clock.Now())
	}
	if !e.Date.Equal(core.NewDate(2024, 4, 28).Time) {
		t.Errorf("Date = %v, want the caller's event date", e.Date)
	}
	if len(events.created) != 1 || events.created[0] != id {
		t.Errorf("published created events = %v, want [%d]", events.created, id)
	}
}

func TestLedgerService_AddEntry_Validation(t *testing.T) {
	svc := NewLedgerService(newMemStore(), nil, nil, true)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewEntry
	}{
		{
			name: "missing title",
			in:   NewEntry{Price: 100, Date: core.NewDate(2024, 4, 28)},
		},
		{
			name: "missing date",
			in:   NewEntry{Title: "groceries", Price: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddEntry(ctx, 7, tt.in)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("AddEntry() error = %v, want core.ErrValidation", err)
			}
		})
	}
}

func TestLedgerService_AddEntry_PublishFailureDoesNotFail(t *testing.T) {
	store := newMemStore()
	events := &capturedEvents{err: errors.New("broker down")}
	svc := NewLedgerService(store, events, nil, true)

	id, err := svc.AddEntry(context.Background(), 7, NewEntry{
		Title: "groceries",
		Price: 1200,
		Date:  core.NewDate(2024, 4, 28),
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v, want nil despite publish failure", err)
	}
	if _, ok := store.entries[id]; !ok {
		t.Error("entry not stored")
	}
}

func TestLedgerService_DeleteEntry_Scoped(t *testing.T) {
	store := newMemStore()
	events := &capturedEvents{}
	svc := NewLedgerService(store, events, nil, true)
	ctx := context.Background()

	id, err := svc.AddEntry(ctx, 7, NewEntry{
		Title: "groceries",
		Price: 1200,
		Date:  core.NewDate(2024, 4, 28),
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	// Another owner cannot delete the row while scoping is on.
	ok, err := svc.DeleteEntry(ctx, 8, id)
	if err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if ok {
		t.Error("DeleteEntry(foreign owner) = true, want false")
	}

	ok, err = svc.DeleteEntry(ctx, 7, id)
	if err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if !ok {
		t.Error("DeleteEntry(owner) = false, want true")
	}
	if len(events.deleted) != 1 || events.deleted[0] != id {
		t.Errorf("published deleted events = %v, want [%d]", events.deleted, id)
	}

	// Idempotent: gone is gone.
	ok, err = svc.DeleteEntry(ctx, 7, id)
	if err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if ok {
		t.Error("second DeleteEntry() = true, want false")
	}
}

func TestLedgerService_DeleteEntry_Unscoped(t *testing.T) {
	store := newMemStore()
	svc := NewLedgerService(store, nil, nil, false)
	ctx := context.Background()

	id, err := svc.AddEntry(ctx, 7, NewEntry{
		Title: "groceries",
		Price: 1200,
		Date:  core.NewDate(2024, 4, 28),
	})
	if err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	// Unscoped mode preserves the permissive delete-by-id behavior.
	ok, err := svc.DeleteEntry(ctx, 8, id)
	if err != nil {
		t.Fatalf("DeleteEntry() error = %v", err)
	}
	if !ok {
		t.Error("DeleteEntry(foreign owner, unscoped) = false, want true")
	}
}

func TestLedgerService_ListMonth(t *testing.T) {
	store := newMemStore()
	svc := NewLedgerService(store, nil, nil, true)
	ctx := context.Background()

	dates := []core.Date{
		core.NewDate(2024, 2, 29),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 31),
		core.NewDate(2024, 4, 1),
	}
	for _, d := range dates {
		if _, err := svc.AddEntry(ctx, 7, NewEntry{Title: "x", Price: 1, Date: d}); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}

	entries, err := svc.ListMonth(ctx, 7, 2024, 3)
	if err != nil {
		t.Fatalf("ListMonth() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("ListMonth() returned %d entries, want 2", len(entries))
	}

	if _, err := svc.ListMonth(ctx, 7, 2024, 13); !errors.Is(err, core.ErrValidation) {
		t.Errorf("ListMonth(month=13) error = %v, want core.ErrValidation", err)
	}
}
