// Package occasion does the birthday and anniversary date arithmetic for
// profiles: exact ages, next occurrences, and the "coming soon" window
// shown on a family page.
package occasion

import (
	"sort"
	"time"
)

// Lookahead for upcoming events on the family page, and how many are shown.
const (
	UpcomingWindowDays = 62
	UpcomingLimit      = 2
)

// YearsSince returns the whole number of years between date and today,
// counted by exact anniversaries: the count only increments once the
// month/day has been reached in the current year.
func YearsSince(date, today time.Time) int {
	years := today.Year() - date.Year()
	if monthDay(today) < monthDay(date) {
		years--
	}
	return years
}

// Age is YearsSince for a birthday.
func Age(birthday, today time.Time) int {
	return YearsSince(birthday, today)
}

// NextOccurrence rolls the month/day of date forward to the nearest
// same-day-or-future date, in today's year or the next. February 29
// becomes February 28 in non-leap years.
func NextOccurrence(date, today time.Time) time.Time {
	next := onYear(date, today.Year())
	if next.Before(todayFloor(today)) {
		next = onYear(date, today.Year()+1)
	}
	return next
}

// Event is an upcoming birthday or anniversary for one family member.
type Event struct {
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	ProfileID int64     `json:"profile_id"`
	Name      string    `json:"name"`
}

// Person is the slice of a family member the upcoming-events scan needs.
type Person struct {
	ProfileID   int64
	Name        string
	Role        string
	Birthday    *time.Time
	Anniversary *time.Time
}

// Upcoming returns birthdays (all members) and anniversaries (parents
// only) falling within the lookahead window, soonest first, capped at
// UpcomingLimit.
func Upcoming(people []Person, today time.Time) []Event {
	limit := todayFloor(today).AddDate(0, 0, UpcomingWindowDays)

	var events []Event
	for _, p := range people {
		if p.Birthday != nil {
			next := NextOccurrence(*p.Birthday, today)
			if !next.After(limit) {
				events = append(events, Event{Date: next, Label: "Birthday", ProfileID: p.ProfileID, Name: p.Name})
			}
		}
		if p.Anniversary != nil && p.Role == "Parent" {
			next := NextOccurrence(*p.Anniversary, today)
			if !next.After(limit) {
				events = append(events, Event{Date: next, Label: "Anniversary", ProfileID: p.ProfileID, Name: p.Name})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	if len(events) > UpcomingLimit {
		events = events[:UpcomingLimit]
	}
	return events
}

// onYear places date's month/day in the given year, substituting
// February 28 when the source is February 29 and the year is not a leap
// year.
func onYear(date time.Time, year int) time.Time {
	day := date.Day()
	if date.Month() == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, date.Month(), day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func monthDay(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

func todayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
