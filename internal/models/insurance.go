package models

import "time"

type PolicyStatus string

const (
	PolicyActive   PolicyStatus = "active"
	PolicyExpiring PolicyStatus = "expiring"
	PolicyExpired  PolicyStatus = "expired"
)

// ExpiringWindow is how far ahead an expiry date starts raising warnings.
const ExpiringWindow = 30 * 24 * time.Hour

type InsurancePolicy struct {
	ID             string       `json:"id"`
	Provider       string       `json:"provider"`
	PolicyNumber   string       `json:"policy_number"`
	ExpirationDate string       `json:"expiration_date"`
	Status         PolicyStatus `json:"status"`
	MembersCount   int          `json:"members_count"`
	Premium        float64      `json:"premium"`
}

type PolicyInput struct {
	Provider       string  `json:"provider"`
	PolicyNumber   string  `json:"policy_number"`
	ExpirationDate string  `json:"expiration_date"`
	MembersCount   int     `json:"members_count"`
	Premium        float64 `json:"premium"`
}

// PolicyStatusAt derives the policy status for the given day.
func PolicyStatusAt(expiration string, now time.Time) PolicyStatus {
	exp, err := time.Parse(DateLayout, expiration)
	if err != nil {
		return PolicyActive
	}
	today := truncateDay(now)
	switch {
	case exp.Before(today):
		return PolicyExpired
	case exp.Sub(today) <= ExpiringWindow:
		return PolicyExpiring
	default:
		return PolicyActive
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidDate reports whether s is a calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// PastDue reports whether a due date lies strictly before the given day.
func PastDue(due string, now time.Time) bool {
	d, err := time.Parse(DateLayout, due)
	if err != nil {
		return false
	}
	return d.Before(truncateDay(now))
}

// DueWithin reports whether a date falls between today and today+window inclusive.
func DueWithin(date string, now time.Time, window time.Duration) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	today := truncateDay(now)
	return !d.Before(today) && d.Sub(today) <= window
}
