package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Wednesday 2026-08-19 09:00 local
var anchor = time.Date(2026, time.August, 19, 9, 0, 0, 0, time.UTC)

func TestParseSlotTomorrow(t *testing.T) {
	got := ParseSlot("Tomorrow 2:00 PM", anchor)
	want := time.Date(2026, time.August, 20, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestParseSlotToday(t *testing.T) {
	got := ParseSlot("today at 9:30 AM", anchor)
	assert.Equal(t, time.Date(2026, time.August, 19, 9, 30, 0, 0, time.UTC), got)
}

func TestParseSlotWeekday(t *testing.T) {
	// next Monday after Wednesday 2026-08-19 is 2026-08-24
	got := ParseSlot("Monday 3 PM", anchor)
	assert.Equal(t, time.Date(2026, time.August, 24, 15, 0, 0, 0, time.UTC), got)

	// same weekday rolls a full week forward
	wed := ParseSlot("Wednesday 11 AM", anchor)
	assert.Equal(t, time.Date(2026, time.August, 26, 11, 0, 0, 0, time.UTC), wed)
}

func TestParseSlotOrdinalDate(t *testing.T) {
	got := ParseSlot("Friday, August 21st, 10:00 AM", anchor)
	assert.Equal(t, time.Date(2026, time.August, 21, 10, 0, 0, 0, time.UTC), got)
}

func TestParseSlotNoonAndMidnight(t *testing.T) {
	noon := ParseSlot("tomorrow 12 PM", anchor)
	assert.Equal(t, 12, noon.Hour())

	midnight := ParseSlot("tomorrow 12 AM", anchor)
	assert.Equal(t, 0, midnight.Hour())
}

func TestParseSlotFallback(t *testing.T) {
	// Friday anchor: next business day is Monday 10:00
	friday := time.Date(2026, time.August, 21, 16, 0, 0, 0, time.UTC)
	got := ParseSlot("whenever works", friday)
	assert.Equal(t, time.Date(2026, time.August, 24, 10, 0, 0, 0, time.UTC), got)
}

func TestGenerateICS(t *testing.T) {
	start := time.Date(2026, time.August, 24, 14, 0, 0, 0, time.UTC)
	ics := string(GenerateICS("Interview: Backend Engineer", "Screening, round 2", "Video call", "jane@example.com", start, 45*time.Minute))

	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, ics, "DTSTART:20260824T140000Z")
	assert.Contains(t, ics, "DTEND:20260824T144500Z")
	assert.Contains(t, ics, `SUMMARY:Interview: Backend Engineer`)
	assert.Contains(t, ics, `DESCRIPTION:Screening\, round 2`)
	assert.Contains(t, ics, "TRIGGER:-PT15M")
	assert.Contains(t, ics, "ATTENDEE;RSVP=TRUE:mailto:jane@example.com")
	assert.Contains(t, ics, "END:VCALENDAR")
	// RFC 5545 requires CRLF line endings throughout
	assert.NotContains(t, strings.ReplaceAll(ics, "\r\n", ""), "\n")
}

func TestTemplatesCarryLink(t *testing.T) {
	msg := InterviewInvitation("HireOps", "Jane", "Backend Engineer", "https://x.test/i/tok123", 72)
	assert.Contains(t, msg.HTMLBody, "https://x.test/i/tok123")
	assert.Contains(t, msg.TextBody, "https://x.test/i/tok123")
	assert.Contains(t, msg.Subject, "Backend Engineer")

	sched := SchedulingConfirmation("HireOps", "Jane", "Backend Engineer",
		"Monday, August 24 at 2:00 PM", "https://x.test/room/tok456", GenerateICS("i", "d", "", "", anchor, time.Hour))
	assert.Len(t, sched.Attachments, 1)
	assert.Equal(t, "interview.ics", sched.Attachments[0].Filename)
	assert.Contains(t, sched.HTMLBody, "Join Interview Room")

	rej := Rejection("HireOps", "", "Backend Engineer")
	assert.Contains(t, rej.TextBody, "Hi there")
}
