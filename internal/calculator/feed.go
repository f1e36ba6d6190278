package calculator

import (
	"slices"
	"strings"
	"time"

	"github.com/mmynk/splitactivity/internal/models"
)

// FeedEntry is one rendered line of a user's activity feed.
type FeedEntry struct {
	Statement    Statement
	ExpenseName  string
	ExpenseDate  time.Time
	PaidByName   string
	PaidByViewer bool
}

// FeedFailure records a participation that could not be evaluated.
type FeedFailure struct {
	ExpenseID string
	Err       error
}

// Feed is the ordered result of evaluating a user's participations.
type Feed struct {
	Entries  []FeedEntry
	Failures []FeedFailure
}

// SortParticipations returns a copy ordered by expense date, most recent
// first, with ties broken by expense ID ascending. The input is untouched.
func SortParticipations(participations []models.ExpenseParticipation) []models.ExpenseParticipation {
	sorted := slices.Clone(participations)
	slices.SortStableFunc(sorted, func(a, b models.ExpenseParticipation) int {
		da, db := expenseDate(a), expenseDate(b)
		if c := db.Compare(da); c != 0 {
			return c
		}
		return strings.Compare(a.ExpenseID, b.ExpenseID)
	})
	return sorted
}

// BuildFeed evaluates every participation for the viewer and returns the
// statements in feed order. A record that fails evaluation is reported in
// Failures and skipped; it never prevents the rest of the feed.
func BuildFeed(viewer *models.User, participations []models.ExpenseParticipation) Feed {
	var feed Feed
	for _, p := range SortParticipations(participations) {
		stmt, err := EvaluateParticipation(viewer, p)
		if err != nil {
			feed.Failures = append(feed.Failures, FeedFailure{ExpenseID: p.ExpenseID, Err: err})
			continue
		}

		entry := FeedEntry{
			Statement:   stmt,
			ExpenseName: p.Expense.Name,
			ExpenseDate: p.Expense.ExpenseDate,
		}
		if viewer != nil && p.Expense.PaidBy == viewer.ID {
			entry.PaidByViewer = true
			entry.PaidByName = "You"
		} else if p.Expense.PaidByUser != nil {
			entry.PaidByName = p.Expense.PaidByUser.DisplayName()
		} else {
			entry.PaidByName = p.Expense.PaidBy
		}
		feed.Entries = append(feed.Entries, entry)
	}
	return feed
}

func expenseDate(p models.ExpenseParticipation) time.Time {
	if p.Expense == nil {
		return time.Time{}
	}
	return p.Expense.ExpenseDate
}
