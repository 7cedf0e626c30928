package pipeline

import (
	"regexp"
	"strings"
)

var nameSplitter = regexp.MustCompile(`[._-]+`)

// ParseContact derives the candidate's display name and normalized
// email from the message envelope. A missing display name is rebuilt
// from the address local part ("jane.doe" -> "Jane Doe").
func ParseContact(fromName, fromAddress string) (name, email string) {
	email = strings.ToLower(strings.TrimSpace(fromAddress))

	name = strings.TrimSpace(strings.Trim(fromName, `"`))
	if name != "" && !strings.Contains(name, "@") {
		return name, email
	}

	local := email
	if at := strings.Index(email, "@"); at > 0 {
		local = email[:at]
	}
	// strip plus-addressing before rebuilding the name
	if plus := strings.Index(local, "+"); plus > 0 {
		local = local[:plus]
	}

	parts := nameSplitter.Split(local, -1)
	var words []string
	for _, p := range parts {
		if p == "" || isNumeric(p) {
			continue
		}
		words = append(words, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(words, " "), email
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
