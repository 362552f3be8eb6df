package services

import "regexp"

// suspiciousPatterns flag input that looks like an injection payload. They
// are a coarse early warning; every query is parameterized regardless.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\bunion\b.*\bselect\b|\bselect\b.*\bunion\b)`),
	regexp.MustCompile(`(?i)(\bdrop\b.*\btable\b|\bdelete\b.*\bfrom\b)`),
	regexp.MustCompile(`(?i)(\binsert\b.*\binto\b|\bupdate\b.*\bset\b)`),
	regexp.MustCompile(`(?i)(\bscript\b.*\b/script\b)`),
	regexp.MustCompile(`(--|#|/\*|\*/)`),
}

// LooksMalicious reports whether any of values matches a suspicious pattern
func LooksMalicious(values ...string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, p := range suspiciousPatterns {
			if p.MatchString(v) {
				return true
			}
		}
	}
	return false
}
