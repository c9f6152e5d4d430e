package commands

import (
	"fmt"
	"strings"
	"time"
)

// Accepted reminder time layouts, in local time.
var whenLayouts = []struct {
	layout   string
	timeOnly bool
}{
	{"2006-01-02 15:04", false},
	{"15:04", true},
	{"3:04PM", true},
	{"3:04pm", true},
	{"3PM", true},
	{"3pm", true},
}

// ParseWhen parses a reminder time. Time-only forms refer to the day of now.
func ParseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	compact := strings.ReplaceAll(s, " ", "")
	for _, l := range whenLayouts {
		in := s
		if l.timeOnly {
			in = compact
		}
		t, err := time.ParseInLocation(l.layout, in, now.Location())
		if err != nil {
			continue
		}
		if l.timeOnly {
			y, m, d := now.Date()
			t = time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location())
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time: %q (use 15:04, 3:04PM or 2006-01-02 15:04)", s)
}
