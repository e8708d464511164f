package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncals/syncals/pkg/events"
)

func TestIdentityEncode(t *testing.T) {
	tests := []struct {
		name string
		id   events.Identity
		want string
	}{
		{"triple", events.Identity{Office: "HQ", Resource: "R1", Person: "P1"}, "HQ/R1/P1"},
		{"with category", events.Identity{Office: "HQ", Resource: "R1", Person: "P1", Category: "auto"}, "HQ/R1/P1/auto"},
		{"with ref", events.Identity{Office: "HQ", Resource: "R1", Person: "P1", Ref: "BK123456"}, "HQ/R1/P1//BK123456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.id.Encode(events.DefaultSeparator)
			assert.Equal(t, tt.want, got)

			back, err := events.ParseIdentity(got, events.DefaultSeparator)
			require.NoError(t, err)
			assert.Equal(t, tt.id, back)
		})
	}
}

func TestParseIdentityErrors(t *testing.T) {
	_, err := events.ParseIdentity("HQ/R1", "/")
	assert.Error(t, err)

	_, err = events.ParseIdentity("a/b/c/d/e/f", "/")
	assert.Error(t, err)
}

func TestIdentityContains(t *testing.T) {
	id := events.Identity{Office: "HQ", Resource: "R/1", Person: "P1"}
	assert.True(t, id.Contains("/"))
	assert.False(t, id.Contains("|"))
}

func TestRecordDuration(t *testing.T) {
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	r := events.Record{Origin: events.OriginAdd, Start: start, End: start.Add(10 * time.Minute)}
	assert.Equal(t, 10*time.Minute, r.Duration())
	assert.True(t, r.IsChange())
	assert.False(t, events.Record{Origin: "cybozu"}.IsChange())
}

func TestRange(t *testing.T) {
	from := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	rng := events.Days(from, 7)

	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), rng.From)
	assert.Equal(t, time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), rng.To)
	assert.True(t, rng.Contains(rng.From))
	assert.False(t, rng.Contains(rng.To))

	at := time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC)
	assert.True(t, rng.Overlaps(at, at), "zero-length event inside range")
	assert.True(t, rng.Overlaps(rng.From.Add(-time.Hour), rng.From.Add(time.Hour)))
	assert.False(t, rng.Overlaps(rng.To, rng.To.Add(time.Hour)))
}
