// Package sources implements the launch-option providers. Each source
// maps a title to at most one outbound request and extracts options from
// the raw response; static sources contribute without any fetch.
package sources

import (
	"regexp"
	"strings"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Field limits applied before anything reaches the sink. Oversized or
// malformed extractions are dropped, never truncated mid-token.
const (
	maxCommandLen     = 100
	maxDescriptionLen = 500
	maxOptionsPerPage = 50
)

var (
	commandShape = regexp.MustCompile(`^[-+/]\w`)
	htmlEntity   = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	bbCode       = regexp.MustCompile(`\[/?[a-zA-Z0-9="\s]+\]`)
	bareURL      = regexp.MustCompile(`https?://\S+`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// validCommand reports whether cmd looks like a real launch option and is
// free of markup artifacts.
func validCommand(cmd string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" || len(cmd) < 2 || len(cmd) > maxCommandLen {
		return false
	}
	if strings.ContainsAny(cmd, "<>{}|") {
		return false
	}
	return commandShape.MatchString(cmd)
}

// cleanText strips markup remnants and collapses whitespace so scraped
// descriptions do not carry page artifacts into stored records.
func cleanText(s string) string {
	s = bareURL.ReplaceAllString(s, " ")
	s = htmlEntity.ReplaceAllString(s, "")
	s = bbCode.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '{', '}', '|':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func clampDescription(s string) string {
	s = cleanText(s)
	if len(s) > maxDescriptionLen {
		s = s[:maxDescriptionLen]
	}
	return s
}

// dedupe keeps the first occurrence of each command, capped at limit.
func dedupe(opts []scraper.LaunchOption, limit int) []scraper.LaunchOption {
	seen := make(map[string]struct{}, len(opts))
	out := make([]scraper.LaunchOption, 0, len(opts))
	for _, opt := range opts {
		key := opt.DedupeKey()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opt)
		if len(out) >= limit {
			break
		}
	}
	return out
}
