package mailer

import "fmt"

// InterviewInvitation builds the screening-link email
func InterviewInvitation(company, candidateName, jobTitle, link string, expiryHours int) *Message {
	name := candidateName
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Next step for your %s application at %s", jobTitle, company)
	html := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Thanks for applying for the <strong>%s</strong> role at %s. We'd like to invite you to a short automated screening interview.</p>
<p><a href="%s">Start your screening interview</a></p>
<p>The link is valid for %d hours. Find a quiet spot; it takes about 10 minutes.</p>
<p>Best,<br>%s Recruiting</p>
</body></html>`, name, jobTitle, company, link, expiryHours, company)
	text := fmt.Sprintf(
		"Hi %s,\n\nThanks for applying for the %s role at %s. Please complete a short automated screening interview:\n\n%s\n\nThe link is valid for %d hours.\n\nBest,\n%s Recruiting\n",
		name, jobTitle, company, link, expiryHours, company)

	return &Message{Subject: subject, HTMLBody: html, TextBody: text, ToName: candidateName}
}

// Rejection builds the polite decline email
func Rejection(company, candidateName, jobTitle string) *Message {
	name := candidateName
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Update on your %s application", jobTitle)
	html := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Thank you for taking the time to apply for the <strong>%s</strong> role at %s.</p>
<p>After careful review, we've decided not to move forward with your application at this time. We encourage you to apply again for future openings that match your experience.</p>
<p>We wish you the best in your search.</p>
<p>Best,<br>%s Recruiting</p>
</body></html>`, name, jobTitle, company, company)
	text := fmt.Sprintf(
		"Hi %s,\n\nThank you for applying for the %s role at %s. After careful review, we've decided not to move forward at this time.\n\nWe wish you the best in your search.\n\nBest,\n%s Recruiting\n",
		name, jobTitle, company, company)

	return &Message{Subject: subject, HTMLBody: html, TextBody: text, ToName: candidateName}
}

// SchedulingConfirmation builds the booked-slot email with the ICS
// invite attached and a link to the interview room.
func SchedulingConfirmation(company, candidateName, jobTitle, slot, roomURL string, ics []byte) *Message {
	name := candidateName
	if name == "" {
		name = "there"
	}
	subject := fmt.Sprintf("Interview confirmed: %s at %s", jobTitle, company)
	html := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Your interview for the <strong>%s</strong> role at %s is confirmed for <strong>%s</strong>.</p>
<p><a href="%s">Join Interview Room</a></p>
<p>A calendar invite is attached. Please join a few minutes early.</p>
<p>Best,<br>%s Recruiting</p>
</body></html>`, name, jobTitle, company, slot, roomURL, company)
	text := fmt.Sprintf(
		"Hi %s,\n\nYour interview for the %s role at %s is confirmed for %s.\n\nJoin here: %s\n\nA calendar invite is attached.\n\nBest,\n%s Recruiting\n",
		name, jobTitle, company, slot, roomURL, company)

	msg := &Message{Subject: subject, HTMLBody: html, TextBody: text, ToName: candidateName}
	if len(ics) > 0 {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:    "interview.ics",
			ContentType: "text/calendar; method=REQUEST",
			Content:     ics,
		})
	}
	return msg
}

// Custom wraps a free-form draft written on the dashboard
func Custom(company, candidateName, subject, body string) *Message {
	name := candidateName
	if name == "" {
		name = "there"
	}
	html := fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>%s</p>
<p>Best,<br>%s Recruiting</p>
</body></html>`, name, body, company)
	text := fmt.Sprintf("Hi %s,\n\n%s\n\nBest,\n%s Recruiting\n", name, body, company)

	return &Message{Subject: subject, HTMLBody: html, TextBody: text, ToName: candidateName}
}
