package extractor

import (
	"regexp"
	"strings"
)

// boilerplatePhrases mark legal, consent and call-to-action text that carries
// no product information.
var boilerplatePhrases = []string{
	"cookie",
	"accept all",
	"privacy policy",
	"terms of service",
	"© 20",
	"all rights reserved",
	"log in",
	"login",
	"sign in",
	"sign up",
	"register now",
	"registration",
	"subscribe",
	"subscription",
	"newsletter",
	"contact us",
	"contact sales",
	"get in touch",
	"book a demo",
	"request a demo",
	"schedule a demo",
	"get a demo",
	"follow us",
	"social media",
}

// navigationLabels are single-word menu entries.
var navigationLabels = map[string]struct{}{
	"home":       {},
	"about":      {},
	"contact":    {},
	"products":   {},
	"services":   {},
	"solutions":  {},
	"careers":    {},
	"blog":       {},
	"company":    {},
	"resources":  {},
	"support":    {},
	"platform":   {},
	"news":       {},
	"events":     {},
	"industries": {},
}

var newWindowPattern = regexp.MustCompile(`(?i)\(\s*opens? in (a )?new (window|tab)\s*\)`)

// IsRelevantContent reports whether text is worth indexing. Empty text,
// boilerplate and bare navigation labels are rejected.
func IsRelevantContent(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	if _, ok := navigationLabels[lower]; ok {
		return false
	}

	return !newWindowPattern.MatchString(trimmed)
}
