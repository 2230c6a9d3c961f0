package util

import "strings"

// MaskToken obscures a shareable token for logs and audit entries, showing
// only the first and last few characters.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 8 {
		return token[:4] + "..." + token[len(token)-4:]
	} else if len(token) > 4 {
		return token[:2] + "..." + token[len(token)-2:]
	} else if len(token) > 2 {
		return token[:1] + "..." + token[len(token)-1:]
	}
	return token
}

// MaskEmail obscures the local part of an email address, keeping the domain
// readable.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 {
		return MaskToken(email)
	}
	return MaskToken(email[:at]) + email[at:]
}
