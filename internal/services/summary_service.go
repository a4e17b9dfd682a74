package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/core"
)

// SummaryService computes monthly aggregates over the ledger. Every call
// re-queries the store; nothing is cached, so summaries are always fresh.
type SummaryService struct {
	users   UserStore
	entries EntryStore
	clock   Clock
}

func NewSummaryService(users UserStore, entries EntryStore, clock Clock) *SummaryService {
	if clock == nil {
		clock = time.Now
	}
	return &SummaryService{users: users, entries: entries, clock: clock}
}

// SummarizeMonth aggregates the owner's entries for one calendar month.
//
// The window is [monthStart, min(nextMonthStart, now)): a month still in
// progress is summarized up to the present instant, and a fully future month
// yields an empty summary. AveragePerDay divides the total by elapsed
// calendar days in the clamped window; a window shorter than one day has an
// average of 0 rather than dividing by zero.
func (s *SummaryService) SummarizeMonth(ctx context.Context, ownerID int64, year, month int) (*core.MonthSummary, error) {
	if year < 1 || month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: year/month out of range (%d-%d)", core.ErrValidation, year, month)
	}

	// The owner must resolve; core.ErrNotFound propagates as the none result.
	if _, err := s.users.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	effectiveEnd := monthStart.AddDate(0, 1, 0)
	if now := s.clock().UTC(); now.Before(effectiveEnd) {
		effectiveEnd = now
	}

	summary := &core.MonthSummary{
		Year:       year,
		Month:      month,
		ByCategory: make(map[string]core.CategorySum),
	}
	if !effectiveEnd.After(monthStart) {
		return summary, nil
	}

	sums, err := s.entries.SumByCategory(ctx, ownerID, monthStart, effectiveEnd)
	if err != nil {
		return nil, fmt.Errorf("aggregate month: %w", err)
	}

	for _, cs := range sums {
		summary.TotalCount += cs.Count
		summary.TotalSum += cs.Sum
		summary.ByCategory[cs.Category] = cs
	}

	if elapsedDays := int64(effectiveEnd.Sub(monthStart) / (24 * time.Hour)); elapsedDays > 0 {
		summary.AveragePerDay = float64(summary.TotalSum) / float64(elapsedDays)
	}

	return summary, nil
}
