package store

import "time"

// KeyTimestampLayout is fixed width and zero padded so that lexical order of
// issued timestamps matches issuance order.
const KeyTimestampLayout = "20060102T150405.000000000Z"

// NextKeyTimestamp returns the identifier for a key issued at now. When latest
// was itself issued with KeyTimestampLayout the result is strictly greater
// than latest under string comparison. An empty latest means no key exists yet.
func NextKeyTimestamp(now time.Time, latest string) string {
	candidate := now.UTC().Format(KeyTimestampLayout)
	if latest == "" || candidate > latest {
		return candidate
	}

	prev, err := time.Parse(KeyTimestampLayout, latest)
	if err != nil {
		// latest was not issued by this layout; nothing sensible to step from
		return candidate
	}
	return prev.Add(time.Nanosecond).UTC().Format(KeyTimestampLayout)
}
