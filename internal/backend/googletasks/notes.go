package googletasks

import (
	"bufio"
	"strings"
	"time"
)

// reminderKey prefixes the notes line carrying the reminder time. Task
// due dates in the API are date-only, so the time lives in the notes.
const reminderKey = "remind-at: "

// EncodeNotes renders a reminder as task notes. Nil yields "".
func EncodeNotes(at *time.Time) string {
	if at == nil {
		return ""
	}
	return reminderKey + at.Format(time.RFC3339)
}

// DecodeNotes extracts the reminder from task notes, or nil.
func DecodeNotes(notes string) *time.Time {
	sc := bufio.NewScanner(strings.NewReader(notes))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, reminderKey) {
			continue
		}
		at, err := time.Parse(time.RFC3339, strings.TrimPrefix(line, reminderKey))
		if err != nil {
			return nil
		}
		at = at.Local()
		return &at
	}
	return nil
}
