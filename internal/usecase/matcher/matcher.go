package matcher

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/simaogato/dealflow-backend/internal/domain"
)

// Advisory is the "next meeting" badge for a deal
type Advisory struct {
	EventID   string
	StartTime time.Time
	DaysUntil int
}

// NextMeeting returns the earliest upcoming calendar event that looks like this deal's meeting
// Only deals in sourcing_meeting_booked get an advisory.
// An event matches if a founder's email is among the attendees, or if a founder's name or
// the company name appears (case-insensitively) in the title or description.
// Cancelled events and events that are already over are skipped.
// This is a best-effort heuristic; an unrelated event that mentions the company will match.
func NextMeeting(deal domain.Deal, events []domain.CalendarEvent, now time.Time) (*Advisory, bool) {
	if deal.Stage != domain.StageSourcingMeetingBooked {
		return nil, false
	}

	m := newDealMatcher(deal)

	candidates := make([]domain.CalendarEvent, 0)
	for _, e := range events {
		if e.Cancelled || e.EndsBefore(now) {
			continue
		}
		if m.matches(e) {
			candidates = append(candidates, e)
		}
	}

	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Start.Equal(candidates[j].Start) {
			return candidates[i].Start.Before(candidates[j].Start)
		}
		return candidates[i].ID < candidates[j].ID
	})

	next := candidates[0]
	return &Advisory{
		EventID:   next.ID,
		StartTime: next.Start,
		DaysUntil: daysUntil(now, next.Start),
	}, true
}

// dealMatcher holds the normalized needles for one deal
type dealMatcher struct {
	emails map[string]struct{}
	terms  []string
}

func newDealMatcher(deal domain.Deal) dealMatcher {
	m := dealMatcher{emails: make(map[string]struct{})}

	for _, f := range deal.Founders {
		if email := normalize(f.Email); email != "" {
			m.emails[email] = struct{}{}
		}
		if name := normalize(f.Name); name != "" {
			m.terms = append(m.terms, name)
		}
	}
	if company := normalize(deal.CompanyName); company != "" {
		m.terms = append(m.terms, company)
	}

	return m
}

func (m dealMatcher) matches(e domain.CalendarEvent) bool {
	for _, attendee := range e.Attendees {
		if _, ok := m.emails[normalize(attendee)]; ok {
			return true
		}
	}

	haystack := strings.ToLower(e.Title + "\n" + e.Description)
	for _, term := range m.terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}

	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// daysUntil counts calendar days between now and start in now's location, never negative
func daysUntil(now, start time.Time) int {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	s := start.In(loc)
	startDay := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)

	// A DST change makes a local day 23 or 25 hours long
	days := int(math.Round(startDay.Sub(today).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
