package utils

import "time"

// NowTimestamp returns the current time as an RFC 3339 string. Timestamps
// are stored as strings so keyset pagination is a plain lexicographic
// comparison, matching how the documents have always been laid out.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
