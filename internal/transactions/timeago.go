package transactions

import (
	"fmt"
	"time"
)

var timeUnits = []struct {
	name    string
	seconds int64
}{
	{"year", 31536000},
	{"month", 2592000},
	{"week", 604800},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
}

// TimeAgo renders the distance from t to now in the largest whole unit,
// e.g. "1 minute ago" or "3 months ago". Anything under a minute, including
// timestamps in the future, is "Just now".
func TimeAgo(now, t time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	for _, u := range timeUnits {
		n := seconds / u.seconds
		if n >= 1 {
			if n == 1 {
				return fmt.Sprintf("1 %s ago", u.name)
			}
			return fmt.Sprintf("%d %ss ago", n, u.name)
		}
	}
	return "Just now"
}
