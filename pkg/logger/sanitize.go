package logger

import "strings"

// sensitiveParams are substrings that mark a query string as unloggable.
// Matching is deliberately coarse: a false positive costs one redacted log
// line, a false negative leaks a credential.
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"email",
	"auth",
}

// SanitizeQueryString reports whether a raw query string must be redacted
// before logging.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}

// SanitizedEmail masks an email address for logging, keeping just enough to
// correlate entries (first character of the local part, the TLD).
func SanitizedEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "[invalid-email]"
	}

	local, domain := email[:at], email[at+1:]
	masked := string(local[0]) + strings.Repeat("*", len(local)-1)

	if dot := strings.LastIndex(domain, "."); dot > 0 {
		domain = strings.Repeat("*", dot) + domain[dot:]
	}
	return masked + "@" + domain
}
