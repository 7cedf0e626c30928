package mailer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateICS builds an RFC 5545 calendar invite for one interview,
// with a 15-minute display reminder.
func GenerateICS(summary, description, location, attendee string, start time.Time, duration time.Duration) []byte {
	end := start.Add(duration)
	stamp := time.Now().UTC()

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//HireOps//Recruiting//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:" + uuid.New().String() + "@hireops",
		"DTSTAMP:" + stamp.Format("20060102T150405Z"),
		"DTSTART:" + start.UTC().Format("20060102T150405Z"),
		"DTEND:" + end.UTC().Format("20060102T150405Z"),
		"SUMMARY:" + escapeICS(summary),
		"DESCRIPTION:" + escapeICS(description),
	}
	if location != "" {
		lines = append(lines, "LOCATION:"+escapeICS(location))
	}
	if attendee != "" {
		lines = append(lines, "ATTENDEE;RSVP=TRUE:mailto:"+attendee)
	}
	lines = append(lines,
		"STATUS:CONFIRMED",
		"BEGIN:VALARM",
		"TRIGGER:-PT15M",
		"ACTION:DISPLAY",
		"DESCRIPTION:Interview reminder",
		"END:VALARM",
		"END:VEVENT",
		"END:VCALENDAR",
	)
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func escapeICS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

var (
	ordinalPattern  = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	clockPattern    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	monthDayPattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// ParseSlot turns a human slot string ("Tomorrow 2:00 PM",
// "Monday, January 5th, 10 AM", "Friday 3 PM") into a concrete time.
// Unparseable slots land on the next business day at 10:00, so a
// booking never fails on slot wording.
func ParseSlot(slot string, now time.Time) time.Time {
	text := strings.ToLower(ordinalPattern.ReplaceAllString(slot, "$1"))

	hour, minute := 10, 0
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if strings.EqualFold(m[3], "pm") && hour < 12 {
			hour += 12
		}
		if strings.EqualFold(m[3], "am") && hour == 12 {
			hour = 0
		}
	}

	day := time.Time{}
	switch {
	case strings.Contains(text, "today"):
		day = now
	case strings.Contains(text, "tomorrow"):
		day = now.AddDate(0, 0, 1)
	default:
		if m := monthDayPattern.FindStringSubmatch(text); m != nil {
			dom, _ := strconv.Atoi(m[2])
			day = time.Date(now.Year(), months[m[1]], dom, 0, 0, 0, 0, now.Location())
			// a date already behind us means next year
			if day.AddDate(0, 0, 1).Before(now) {
				day = day.AddDate(1, 0, 0)
			}
		} else {
			for name, wd := range weekdays {
				if strings.Contains(text, name) {
					day = nextWeekday(now, wd)
					break
				}
			}
		}
	}

	if day.IsZero() {
		return NextBusinessDay(now)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
}

// nextWeekday returns the next occurrence of wd strictly after today
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

// NextBusinessDay returns the next weekday at 10:00 local time
func NextBusinessDay(now time.Time) time.Time {
	day := now.AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, now.Location())
}

// SlotLabel renders a parsed slot back into the confirmation wording
func SlotLabel(t time.Time) string {
	return fmt.Sprintf("%s, %s %d at %s",
		t.Weekday(), t.Month(), t.Day(), t.Format("3:04 PM"))
}
