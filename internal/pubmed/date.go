package pubmed

import (
	"strings"
	"time"
)

// pubDateLayouts are the shapes PubMed uses for "pubdate", most precise first.
var pubDateLayouts = []string{
	"2006 Jan 2",
	"2006 Jan",
	"2006",
	"2006/01/02",
	"2006-01-02",
}

// ParseDate parses a PubMed pubdate such as "2024 Oct 15", "2024 Oct" or
// "2024 Oct-Dec". Ranges and seasons resolve to their first parseable
// prefix. An unparseable date yields now.
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	// "2024 Oct-Dec" -> "2024 Oct"; "2023 Dec 28-2024 Jan 3" -> "2023 Dec 28"
	if i := strings.IndexByte(s, '-'); i > 4 && s[4] == ' ' {
		s = strings.TrimSpace(s[:i])
	}

	fields := strings.Fields(s)
	for n := len(fields); n > 0; n-- {
		candidate := strings.Join(fields[:n], " ")
		for _, layout := range pubDateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t
			}
		}
	}
	return now
}
