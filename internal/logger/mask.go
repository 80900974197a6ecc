package logger

import "regexp"

// Replacement order matters: cards before phones, SSNs before phones.
var piiPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "[IP_REDACTED]"},
	{regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`), "[IP_REDACTED]"},
	{regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), "[CARD_REDACTED]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`), "[PHONE_REDACTED]"},
}

// MaskPII redacts e-mail addresses, IP addresses, card numbers, SSNs and phone numbers.
func MaskPII(s string) string {
	for _, p := range piiPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

// Masker returns MaskPII when enabled and the identity function otherwise.
func Masker(enabled bool) func(string) string {
	if enabled {
		return MaskPII
	}
	return func(s string) string { return s }
}
