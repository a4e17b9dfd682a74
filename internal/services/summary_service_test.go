package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

type summaryFixture struct {
	svc   *SummaryService
	store *memStore
	clock *fakeClock
	owner int64
}

func newSummaryFixture(t *testing.T, now time.Time) *summaryFixture {
	t.Helper()
	store := newMemStore()
	owner, err := store.CreateUser(context.Background(), "alice", "digest")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	clock := newFakeClock(now)
	return &summaryFixture{
		svc:   NewSummaryService(store, store, clock.Now),
		store: store,
		clock: clock,
		owner: owner,
	}
}

func (f *summaryFixture) addEntry(t *testing.T, category string, price int64, d core.Date) {
	t.Helper()
	_, err := f.store.CreateEntry(context.Background(), core.Entry{
		UserID:    f.owner,
		Title:     "x",
		Price:     price,
		Date:      d,
		CreatedOn: f.clock.Now(),
		Category:  category,
		CreatedBy: f.owner,
	})
	if err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}
}

func TestSummarizeMonth_FullMonth(t *testing.T) {
	f := newSummaryFixture(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	f.addEntry(t, "food", 10, core.NewDate(2024, 3, 2))
	f.addEntry(t, "food", 5, core.NewDate(2024, 3, 14))
	f.addEntry(t, "fun", 20, core.NewDate(2024, 3, 29))

	s, err := f.svc.SummarizeMonth(context.Background(), f.owner, 2024, 3)
	if err != nil {
		t.Fatalf("SummarizeMonth() error = %v", err)
	}

	if s.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", s.TotalCount)
	}
	if s.TotalSum != 35 {
		t.Errorf("TotalSum = %d, want 35", s.TotalSum)
	}
	if got := s.ByCategory["food"]; got.Sum != 15 || got.Count != 2 {
		t.Errorf("food = {sum %d, count %d}, want {15, 2}", got.Sum, got.Count)
	}
	if got := s.ByCategory["fun"]; got.Sum != 20 || got.Count != 1 {
		t.Errorf("fun = {sum %d, count %d}, want {20, 1}", got.Sum, got.Count)
	}
	// March 2024 has 31 elapsed days.
	if want := 35.0 / 31.0; s.AveragePerDay != want {
		t.Errorf("AveragePerDay = %v, want %v", s.AveragePerDay, want)
	}
}

func TestSummarizeMonth_ClampsToNow(t *testing.T) {
	// Mid-March: the month is in progress.
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	f := newSummaryFixture(t, now)
	f.addEntry(t, "food", 10, core.NewDate(2024, 3, 2))
	// Dated tomorrow, same month: must be excluded.
	f.addEntry(t, "food", 999, core.NewDate(2024, 3, 16))

	s, err := f.svc.SummarizeMonth(context.Background(), f.owner, 2024, 3)
	if err != nil {
		t.Fatalf("SummarizeMonth() error = %v", err)
	}

	if s.TotalCount != 1 || s.TotalSum != 10 {
		t.Errorf("summary = {count %d, sum %d}, want {1, 10}", s.TotalCount, s.TotalSum)
	}
	// 14 full days have elapsed since March 1 at the clamped end.
	if want := 10.0 / 14.0; s.AveragePerDay != want {
		t.Errorf("AveragePerDay = %v, want %v", s.AveragePerDay, want)
	}
}

func TestSummarizeMonth_FutureMonth(t *testing.T) {
	f := newSummaryFixture(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	f.addEntry(t, "food", 10, core.NewDate(2024, 3, 2))

	s, err := f.svc.SummarizeMonth(context.Background(), f.owner, 2024, 6)
	if err != nil {
		t.Fatalf("SummarizeMonth() error = %v", err)
	}

	if s.TotalCount != 0 || s.TotalSum != 0 || s.AveragePerDay != 0 {
		t.Errorf("future month summary = %+v, want all zero", s)
	}
	if len(s.ByCategory) != 0 {
		t.Errorf("future month ByCategory = %v, want empty", s.ByCategory)
	}
}

func TestSummarizeMonth_ZeroLengthWindow(t *testing.T) {
	// The very first instant of the month: zero elapsed days.
	f := newSummaryFixture(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	s, err := f.svc.SummarizeMonth(context.Background(), f.owner, 2024, 3)
	if err != nil {
		t.Fatalf("SummarizeMonth() error = %v", err)
	}
	if s.AveragePerDay != 0 {
		t.Errorf("AveragePerDay = %v, want 0 for a zero-day window", s.AveragePerDay)
	}
}

func TestSummarizeMonth_UnknownOwner(t *testing.T) {
	f := newSummaryFixture(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	_, err := f.svc.SummarizeMonth(context.Background(), f.owner+100, 2024, 3)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SummarizeMonth(unknown owner) error = %v, want core.ErrNotFound", err)
	}
}

func TestSummarizeMonth_InvalidArguments(t *testing.T) {
	f := newSummaryFixture(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		year  int
		month int
	}{
		{"zero month", 2024, 0},
		{"month out of range", 2024, 13},
		{"zero year", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SummarizeMonth(context.Background(), f.owner, tt.year, tt.month)
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("SummarizeMonth(%d, %d) error = %v, want core.ErrValidation",
					tt.year, tt.month, err)
			}
		})
	}
}

func TestSummarizeMonth_IgnoresOtherUsers(t *testing.T) {
	f := newSummaryFixture(t, time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC))
	other, err := f.store.CreateUser(context.Background(), "bob", "digest")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	f.addEntry(t, "food", 10, core.NewDate(2024, 3, 2))
	if _, err := f.store.CreateEntry(context.Background(), core.Entry{
		UserID: other, Title: "x", Price: 500,
		Date: core.NewDate(2024, 3, 2), CreatedOn: f.clock.Now(), CreatedBy: other,
	}); err != nil {
		t.Fatalf("CreateEntry() error = %v", err)
	}

	s, err := f.svc.SummarizeMonth(context.Background(), f.owner, 2024, 3)
	if err != nil {
		t.Fatalf("SummarizeMonth() error = %v", err)
	}
	if s.TotalSum != 10 {
		t.Errorf("TotalSum = %d, want 10 (other users excluded)", s.TotalSum)
	}
}
