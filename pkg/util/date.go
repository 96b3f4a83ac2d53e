package util

import "time"

// dateLayouts are the accepted spellings for calendar dates, most common first.
var dateLayouts = []string{"2006-01-02", "01/02/2006", "20060102", time.RFC3339}

// CanonicalDate normalizes accepted date spellings to 2006-01-02 so
// semantically identical inputs compare equal. Unparseable input is returned
// unchanged for the caller to reject downstream.
func CanonicalDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
