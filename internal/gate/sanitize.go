package gate

import "strings"

// MaxCredentialLength caps sanitized credential inputs.
const MaxCredentialLength = 50

// strippedChars are characters commonly used in injection payloads. They are
// removed from credential inputs before any comparison.
const strippedChars = "<>\"'`;&|$(){}[]\\"

// SanitizeCredential strips injection-prone characters, trims surrounding
// whitespace and truncates to maxLen runes. It runs before comparison, so a
// stored secret containing stripped characters can never match.
func SanitizeCredential(raw string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxCredentialLength
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if strings.ContainsRune(strippedChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	runes := []rune(out)
	if len(runes) > maxLen {
		out = string(runes[:maxLen])
	}
	return out
}
