package authsvc

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// headerSanitizer strips HTML-ish fragments and control characters from
// inbound credential headers before they ever reach the validator or a
// log line (spec §4.6 step 1: "strip CR/LF, control chars, HTML-ish
// fragments").
type headerSanitizer struct {
	policy *bluemonday.Policy
}

func newHeaderSanitizer() *headerSanitizer {
	return &headerSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *headerSanitizer) sanitize(value string) string {
	value = strings.Map(dropControlAndNewlines, value)
	return s.policy.Sanitize(value)
}

func dropControlAndNewlines(r rune) rune {
	switch r {
	case '\r', '\n':
		return -1
	}
	if r < 0x20 || r == 0x7f {
		return -1
	}
	return r
}
