package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextKeyTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 5, 7, 8, 9, 10, time.UTC)

	tests := []struct {
		name     string
		latest   string
		expected string
	}{
		{name: "first key", latest: "", expected: "20240305T070809.000000010Z"},
		{name: "clock ahead of latest", latest: "20240305T070809.000000009Z", expected: "20240305T070809.000000010Z"},
		{name: "same instant", latest: "20240305T070809.000000010Z", expected: "20240305T070809.000000011Z"},
		{name: "clock behind latest", latest: "20250101T000000.999999999Z", expected: "20250101T000001.000000000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := NextKeyTimestamp(now, tt.latest)
			assert.Equal(t, tt.expected, next)
			assert.Greater(t, next, tt.latest)
		})
	}
}

func TestNextKeyTimestampNormalizesZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, loc)

	assert.Equal(t, "20240305T070000.000000000Z", NextKeyTimestamp(now, ""))
}

func TestNextKeyTimestampIsMonotonic(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := ""
	for i := 0; i < 100; i++ {
		next := NextKeyTimestamp(now, latest)
		assert.Greater(t, next, latest)
		latest = next
	}
}
