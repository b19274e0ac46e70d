package report

import (
	"math"
	"sort"
	"strings"

	"rollcall/internal/ledger"
	"rollcall/internal/roster"
)

// StudentSummary is one roster member's slice of the report.
type StudentSummary struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Gender      string                 `json:"gender,omitempty"`
	PresentDays int                    `json:"present_days"`
	TotalDays   int                    `json:"total_days"`
	Percentage  float64                `json:"percentage"`
	History     []ledger.PresenceEvent `json:"history"`
}

// Report is a derived view over a date range. It is a plain value:
// never cached, never mutated after Build returns.
type Report struct {
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	TotalStudents int              `json:"total_students"`
	TotalPresent  int              `json:"total_present"`
	TotalAbsent   int              `json:"total_absent"`
	GirlsPresent  int              `json:"girls_present"`
	GirlsAbsent   int              `json:"girls_absent"`
	BoysPresent   int              `json:"boys_present"`
	BoysAbsent    int              `json:"boys_absent"`
	Students      []StudentSummary `json:"students"`
}

// Gender buckets used for the partitioned tallies.
const (
	GenderFemale       = "female"
	GenderMale         = "male"
	GenderUnclassified = ""
)

var (
	femaleTokens = map[string]bool{"female": true, "girl": true, "g": true}
	maleTokens   = map[string]bool{"male": true, "boy": true, "b": true}
)

// GenderBucket maps a free-text gender onto female, male or
// unclassified. Unclassified students stay in the overall totals but
// out of the gender tallies.
func GenderBucket(gender string) string {
	token := strings.ToLower(strings.TrimSpace(gender))
	switch {
	case femaleTokens[token]:
		return GenderFemale
	case maleTokens[token]:
		return GenderMale
	default:
		return GenderUnclassified
	}
}

// Build derives attendance statistics for the inclusive range
// [startDate, endDate]. Dates are zero-padded YYYY-MM-DD, so plain
// string comparison gives correct ordering; an inverted range simply
// yields an all-absent report. Pure: same inputs, same report, no
// clock reads. Students are emitted in roster order so repeated calls
// serialize identically.
func Build(students []roster.StudentRecord, events []ledger.PresenceEvent, startDate, endDate string) Report {
	rep := Report{
		StartDate:     startDate,
		EndDate:       endDate,
		TotalStudents: len(students),
	}

	var filtered []ledger.PresenceEvent
	for _, evt := range events {
		if evt.Date >= startDate && evt.Date <= endDate {
			filtered = append(filtered, evt)
		}
	}

	// Distinct present / any-status dates per student id. Events whose
	// id is off the roster (orphans) land here too but are never read
	// back, so they can't skew totals or appear in a summary.
	presentDates := make(map[string]map[string]bool)
	anyDates := make(map[string]map[string]bool)
	history := make(map[string][]ledger.PresenceEvent)
	for _, evt := range filtered {
		if anyDates[evt.StudentID] == nil {
			anyDates[evt.StudentID] = make(map[string]bool)
		}
		anyDates[evt.StudentID][evt.Date] = true
		if evt.Status == ledger.StatusPresent {
			if presentDates[evt.StudentID] == nil {
				presentDates[evt.StudentID] = make(map[string]bool)
			}
			presentDates[evt.StudentID][evt.Date] = true
		}
		history[evt.StudentID] = append(history[evt.StudentID], evt)
	}

	rep.Students = make([]StudentSummary, 0, len(students))
	for _, rec := range students {
		sum := StudentSummary{
			ID:          rec.ID,
			Name:        rec.Name,
			Gender:      rec.Gender,
			PresentDays: len(presentDates[rec.ID]),
			TotalDays:   len(anyDates[rec.ID]),
			History:     sortedHistory(history[rec.ID]),
		}
		if sum.TotalDays > 0 {
			sum.Percentage = round2(float64(sum.PresentDays) / float64(sum.TotalDays) * 100)
		}

		present := sum.PresentDays > 0
		if present {
			rep.TotalPresent++
		} else {
			rep.TotalAbsent++
		}
		switch GenderBucket(rec.Gender) {
		case GenderFemale:
			if present {
				rep.GirlsPresent++
			} else {
				rep.GirlsAbsent++
			}
		case GenderMale:
			if present {
				rep.BoysPresent++
			} else {
				rep.BoysAbsent++
			}
		}
		rep.Students = append(rep.Students, sum)
	}
	return rep
}

func sortedHistory(events []ledger.PresenceEvent) []ledger.PresenceEvent {
	out := make([]ledger.PresenceEvent, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
