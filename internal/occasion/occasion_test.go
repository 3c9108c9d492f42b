package occasion

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeBeforeBirthdayThisYear(t *testing.T) {
	birthday := date(1990, time.December, 25)
	today := date(2026, time.August, 27)
	if got := Age(birthday, today); got != 35 {
		t.Errorf("age = %d, want 35 (birthday not yet reached this year)", got)
	}
}

func TestAgeOnBirthday(t *testing.T) {
	birthday := date(1990, time.August, 27)
	today := date(2026, time.August, 27)
	if got := Age(birthday, today); got != 36 {
		t.Errorf("age = %d, want 36 on the birthday itself", got)
	}
}

func TestAgeAfterBirthdayThisYear(t *testing.T) {
	birthday := date(1990, time.March, 1)
	today := date(2026, time.August, 27)
	if got := Age(birthday, today); got != 36 {
		t.Errorf("age = %d, want 36", got)
	}
}

func TestYearsSinceAnniversary(t *testing.T) {
	wedding := date(2005, time.September, 10)
	today := date(2026, time.August, 27)
	if got := YearsSince(wedding, today); got != 20 {
		t.Errorf("years = %d, want 20 (anniversary not yet reached)", got)
	}
}

func TestNextOccurrenceLaterThisYear(t *testing.T) {
	birthday := date(1990, time.October, 5)
	today := date(2026, time.August, 27)
	want := date(2026, time.October, 5)
	if got := NextOccurrence(birthday, today); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestNextOccurrenceRollsToNextYear(t *testing.T) {
	birthday := date(1990, time.January, 2)
	today := date(2026, time.August, 27)
	want := date(2027, time.January, 2)
	if got := NextOccurrence(birthday, today); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestNextOccurrenceSameDayCounts(t *testing.T) {
	birthday := date(1990, time.August, 27)
	today := date(2026, time.August, 27)
	want := date(2026, time.August, 27)
	if got := NextOccurrence(birthday, today); !got.Equal(want) {
		t.Errorf("next = %v, want today %v", got, want)
	}
}

func TestNextOccurrenceFeb29NonLeapYear(t *testing.T) {
	birthday := date(2000, time.February, 29)
	today := date(2026, time.January, 15)
	// 2026 is not a leap year: substitute February 28.
	want := date(2026, time.February, 28)
	if got := NextOccurrence(birthday, today); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestNextOccurrenceFeb29LeapYear(t *testing.T) {
	birthday := date(2000, time.February, 29)
	today := date(2028, time.January, 15)
	want := date(2028, time.February, 29)
	if got := NextOccurrence(birthday, today); !got.Equal(want) {
		t.Errorf("next = %v, want %v", got, want)
	}
}

func TestUpcomingWindowAndOrder(t *testing.T) {
	today := date(2026, time.August, 27)
	bSoon := date(2010, time.September, 5)
	bSooner := date(2012, time.September, 1)
	bFar := date(2011, time.December, 25) // outside the 62-day window
	anniv := date(2004, time.September, 20)

	people := []Person{
		{ProfileID: 1, Name: "Alice", Role: "Parent", Birthday: &bFar, Anniversary: &anniv},
		{ProfileID: 2, Name: "Kid One", Role: "Child", Birthday: &bSoon},
		{ProfileID: 3, Name: "Kid Two", Role: "Child", Birthday: &bSooner},
	}

	events := Upcoming(people, today)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (capped)", len(events))
	}
	if events[0].ProfileID != 3 || events[0].Label != "Birthday" {
		t.Errorf("first event = %+v, want Kid Two's birthday", events[0])
	}
	if events[1].ProfileID != 2 {
		t.Errorf("second event = %+v, want Kid One's birthday", events[1])
	}
}

func TestUpcomingChildAnniversaryIgnored(t *testing.T) {
	today := date(2026, time.August, 27)
	anniv := date(2020, time.September, 1)
	people := []Person{
		{ProfileID: 1, Name: "Kid", Role: "Child", Anniversary: &anniv},
	}
	if events := Upcoming(people, today); len(events) != 0 {
		t.Errorf("child anniversaries should not produce events, got %+v", events)
	}
}
