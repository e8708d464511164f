package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
)

func resolve(t *testing.T, rs *reconcile.Ruleset, start time.Time, tags ...string) ([]string, reconcile.Diagnostics) {
	t.Helper()
	var recs []events.Record
	for _, tag := range tags {
		recs = append(recs, source(start, start.Add(time.Hour), tag, "Meeting"))
	}
	meetings, diags := reconcile.AggregateOrdered(recs, rs)
	require.Empty(t, diags)
	require.Len(t, meetings, 1)

	set, d, err := reconcile.Resolve(meetings[0], rs)
	require.NoError(t, err)
	var out []string
	for _, id := range set.Sorted() {
		out = append(out, id.String())
	}
	return out, d
}

func TestAggregateGroupsAndOrdersTags(t *testing.T) {
	rs := compile(t, testRules())
	end := tenAM.Add(time.Hour)
	meetings, diags := reconcile.AggregateOrdered([]events.Record{
		source(tenAM, end, "P2", "Sync"),
		source(tenAM, end, "R2", "Sync"),
		source(tenAM, end, "R1", "Sync"),
		source(tenAM, end, "P1", "Sync"),
		source(tenAM, end, "R1", "Sync"),
		source(tenAM, end, "R1", "Other"),
	}, rs)

	assert.Empty(t, diags)
	require.Len(t, meetings, 2)
	assert.Equal(t, "Other", meetings[0].Description)
	sync := meetings[1]
	assert.Equal(t, []string{"R1", "R2"}, sync.Rooms)
	assert.Equal(t, []string{"P1", "P2"}, sync.Persons)
}

func TestAggregateSamePairYieldsOneTriple(t *testing.T) {
	rs := compile(t, testRules())
	got, _ := resolve(t, rs, tenAM, "R1", "P1", "R1", "P1")
	assert.Equal(t, []string{"HQ/R1/P1"}, got)
}

func TestAggregateCoercesDuration(t *testing.T) {
	rs := compile(t, testRules())
	meetings, diags := reconcile.AggregateOrdered([]events.Record{
		source(tenAM, tenAM.Add(-time.Hour), "R1", "Inverted"),
		source(tenAM, tenAM.Add(5*time.Minute), "R1", "Short"),
	}, rs)

	require.Len(t, meetings, 2)
	for _, m := range meetings {
		assert.Equal(t, tenAM.Add(10*time.Minute), m.End, m.Description)
	}
	assert.Len(t, diags.ByKind(reconcile.KindDuration), 1)
}

func TestAggregateExclusions(t *testing.T) {
	r := testRules()
	r.DeleteMarkers = []string{"×", "＊"}
	r.Skip = "private"
	rs := compile(t, r)
	end := tenAM.Add(time.Hour)

	meetings, diags := reconcile.AggregateOrdered([]events.Record{
		source(tenAM, end, "R1", "×cancelled"),
		source(tenAM, end, "R1", "*note"),
		source(tenAM, end, "R1", "private lunch"),
		source(tenAM, end, "R1", "not private"),
	}, rs)

	require.Len(t, meetings, 1)
	assert.Equal(t, "not private", meetings[0].Description)
	assert.Len(t, diags.ByKind(reconcile.KindExcluded), 3)
}

func TestAggregateUnclassifiable(t *testing.T) {
	rs := compile(t, testRules())
	meetings, diags := reconcile.AggregateOrdered([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "Visitor", "Tour"),
		source(tenAM, tenAM.Add(time.Hour), "Courier", "Tour"),
	}, rs)

	assert.Empty(t, meetings, "a group of unknown tags forms no meeting")
	warnings := diags.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, reconcile.KindUnclassifiable, warnings[0].Kind)
	assert.True(t, pkgerrors.IsUnclassifiable(warnings[0].Err))
}

func TestReconcileCountsOnlyClassifiedMeetings(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "Visitor", "Tour"),
		source(tenAM, tenAM.Add(time.Hour), "R1", "Review"),
		source(tenAM, tenAM.Add(time.Hour), "Visitor", "Review"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Review"),
	}, rs)

	assert.Equal(t, 1, res.Stats.Meetings)
	assert.Equal(t, 1, res.Stats.Adds)
	assert.Len(t, res.Diagnostics.ByKind(reconcile.KindUnclassifiable), 2)
}

func TestPartition(t *testing.T) {
	rs := compile(t, testRules())
	s, tg, diags := reconcile.Partition([]events.Record{
		source(tenAM, tenAM, "R1", ""),
		booking(tenAM, tenAM, "x", ""),
		{Origin: "elsewhere"},
	}, rs)
	assert.Len(t, s, 1)
	assert.Len(t, tg, 1)
	assert.Len(t, diags, 1)
}

func TestResolvePlaceholderFanOut(t *testing.T) {
	rs := compile(t, testRules())
	got, _ := resolve(t, rs, tenAM, "B1", "B2", "P1")
	assert.Equal(t, []string{"BR/B1/no-person", "BR/B2/no-person", "HQ/no-room/P1"}, got)
}

func TestResolveFirstMatchFollowsConfigOrder(t *testing.T) {
	rs := compile(t, testRules())
	got, _ := resolve(t, rs, tenAM, "R2", "R1", "P1")
	// P1 takes R1, the first HQ room in configuration; R2 then takes P1 too.
	assert.Equal(t, []string{"HQ/R1/P1", "HQ/R2/P1"}, got)
}

func TestResolveMixedOffices(t *testing.T) {
	rs := compile(t, testRules())
	got, _ := resolve(t, rs, tenAM, "R1", "B1", "P1", "P3")
	assert.Equal(t, []string{"BR/B1/P3", "HQ/R1/P1"}, got)
}

func TestResolveEjection(t *testing.T) {
	r := testRules()
	r.Eject = []string{"P2"}
	rs := compile(t, r)

	t.Run("no-room placeholder removed unconditionally", func(t *testing.T) {
		got, diags := resolve(t, rs, tenAM, "P2")
		assert.Empty(t, got)
		assert.Len(t, diags.ByKind(reconcile.KindEjected), 1)
	})

	t.Run("contested room lost to another claimant", func(t *testing.T) {
		got, _ := resolve(t, rs, tenAM, "R1", "P1", "P2")
		assert.Equal(t, []string{"HQ/R1/P1"}, got)
	})

	t.Run("sole claimant keeps a real room", func(t *testing.T) {
		got, _ := resolve(t, rs, tenAM, "R1", "P2")
		assert.Equal(t, []string{"HQ/R1/P2"}, got)
	})

	t.Run("other persons unaffected", func(t *testing.T) {
		got, _ := resolve(t, rs, tenAM, "P1")
		assert.Equal(t, []string{"HQ/no-room/P1"}, got)
	})
}

func TestResolveWeekdayRewrite(t *testing.T) {
	r := testRules()
	r.Weekday = []reconcile.WeekdayRule{
		{Days: []string{"fri"}, Pattern: "^HQ/R1/", Replace: "HQ/R2/"},
	}
	rs := compile(t, r)

	got, _ := resolve(t, rs, tenAM, "R1", "P1")
	assert.Equal(t, []string{"HQ/R2/P1"}, got)

	thursday := tenAM.AddDate(0, 0, -1)
	got, _ = resolve(t, rs, thursday, "R1", "P1")
	assert.Equal(t, []string{"HQ/R1/P1"}, got)
}

func TestResolveWeekdayRewriteBadResult(t *testing.T) {
	r := testRules()
	r.Weekday = []reconcile.WeekdayRule{
		{Mask: reconcile.WeekdayMask(time.Friday), Pattern: "/", Replace: "-"},
	}
	rs := compile(t, r)

	got, diags := resolve(t, rs, tenAM, "R1", "P1")
	assert.Equal(t, []string{"HQ/R1/P1"}, got)
	assert.Len(t, diags.ByKind(reconcile.KindRewrite), 1)
}

func TestResolveMissingMapping(t *testing.T) {
	r := testRules()
	r.Rooms = append(r.Rooms, reconcile.Room{Tag: "R9", Office: "HQ"})
	rs := compile(t, r)

	meetings, _ := reconcile.AggregateOrdered([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R9", "Sync"),
	}, rs)
	require.Len(t, meetings, 1)

	_, _, err := reconcile.Resolve(meetings[0], rs)
	require.Error(t, err)
	var mapping *pkgerrors.MappingError
	require.ErrorAs(t, err, &mapping)
	assert.Equal(t, "resource", mapping.Field)
}

func TestIdentitySet(t *testing.T) {
	set := make(reconcile.IdentitySet)
	b := events.Identity{Office: "HQ", Resource: "R2", Person: "P1"}
	a := events.Identity{Office: "HQ", Resource: "R1", Person: "P1"}
	set.Add(b)
	set.Add(a)
	set.Add(a)

	assert.Len(t, set, 2)
	assert.True(t, set.Has(a))
	assert.Equal(t, []events.Identity{a, b}, set.Sorted())

	set.Remove(a)
	assert.False(t, set.Has(a))
}
