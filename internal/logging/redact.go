// Package logging holds helpers for keeping personal data out of logs.
package logging

import "strings"

// RedactEmail masks the local part of an email address, keeping the domain.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
