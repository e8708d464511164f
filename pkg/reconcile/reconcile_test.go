package reconcile_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/syncals/syncals/pkg/errors"
	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
)

const (
	src = events.Origin("source")
	tgt = events.Origin("target")
)

// 2025-01-10 is a Friday.
var tenAM = time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)

func testRules() *reconcile.Rules {
	r := reconcile.DefaultRules()
	r.Rooms = []reconcile.Room{
		{Tag: "R1", Office: "HQ", Resource: "R1"},
		{Tag: "R2", Office: "HQ", Resource: "R2"},
		{Tag: "B1", Office: "BR", Resource: "B1"},
		{Tag: "B2", Office: "BR", Resource: "B2"},
	}
	r.Persons = []reconcile.Person{
		{Tag: "P1", Office: "HQ"},
		{Tag: "P2", Office: "HQ"},
		{Tag: "P3", Office: "BR"},
	}
	r.AutomationMenu = "auto"
	r.MinDuration = 600
	r.CompareLength = 20
	return r
}

func compile(t *testing.T, r *reconcile.Rules) *reconcile.Ruleset {
	t.Helper()
	rs, err := r.Compile()
	require.NoError(t, err)
	return rs
}

func source(start, end time.Time, subject, desc string) events.Record {
	return events.Record{Origin: src, Start: start, End: end, Subject: subject, Description: desc}
}

func booking(start, end time.Time, subject, desc string) events.Record {
	return events.Record{Origin: tgt, Start: start, End: end, Subject: subject, Description: desc}
}

func subjects(recs []events.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Subject
	}
	return out
}

func TestReconcileAddsStretchedMeeting(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM, "R1", "Weekly Sync"),
		source(tenAM, tenAM, "P1", "Weekly Sync"),
	}, rs)

	changes := res.Changes()
	require.Len(t, changes, 1)
	add := changes[0]
	assert.Equal(t, events.OriginAdd, add.Origin)
	assert.Equal(t, tenAM, add.Start)
	assert.Equal(t, tenAM.Add(10*time.Minute), add.End)
	assert.Equal(t, "HQ/R1/P1", add.Subject)
	assert.Equal(t, "Ｗｅｅｋｌｙ　Ｓｙｎｃ", add.Description)

	assert.Equal(t, 2, res.Stats.SourceRecords)
	assert.Equal(t, 1, res.Stats.Meetings)
	assert.Equal(t, 1, res.Stats.Adds)
	assert.Empty(t, res.Diagnostics.Warnings())
}

func TestReconcileClaimedBooking(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM, "R1", "Weekly Sync"),
		source(tenAM, tenAM, "P1", "Weekly Sync"),
		booking(tenAM, tenAM.Add(10*time.Minute), "HQ、auto、R1、P1、BK1", "Ｗｅｅｋｌｙ　Ｓｙｎｃ"),
	}, rs)

	assert.False(t, res.HasChanges())
	assert.Equal(t, 1, res.Stats.Claimed)
	assert.Equal(t, 1, res.Stats.TargetRecords)
}

func TestReconcileTruncatedTargetDescription(t *testing.T) {
	rs := compile(t, testRules())
	desc := "Quarterly planning review with all staff"
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R1", desc),
		source(tenAM, tenAM.Add(time.Hour), "P1", desc),
		booking(tenAM, tenAM.Add(time.Hour), "HQ、auto、R1、P1、BK1", "Quarterly planning r"),
	}, rs)

	assert.False(t, res.HasChanges())
	assert.Equal(t, 1, res.Stats.Claimed)
}

func TestReconcileIgnoresDescriptionWhenDisabled(t *testing.T) {
	r := testRules()
	r.CompareDescription = false
	rs := compile(t, r)
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R1", "Renamed meeting"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Renamed meeting"),
		booking(tenAM, tenAM.Add(time.Hour), "HQ、auto、R1、P1、BK1", "Old title"),
	}, rs)

	assert.False(t, res.HasChanges())
}

func TestReconcileSwappedBookingFields(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R1", "Sync"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Sync"),
		booking(tenAM, tenAM.Add(time.Hour), "HQ、auto、P1、R1、BK1", "Sync"),
	}, rs)

	assert.False(t, res.HasChanges())
}

func TestReconcileDeletionConservatism(t *testing.T) {
	rs := compile(t, testRules())
	end := tenAM.Add(time.Hour)
	res := reconcile.Reconcile([]events.Record{
		booking(tenAM, end, "HQ、manual、R1、P1、BK1", "Walk-in"),
		booking(tenAM, end, "HQ、auto、R2、P2、BK2", "Cancelled"),
	}, rs)

	deletes := res.Changeset.Deletes()
	require.Len(t, deletes, 1)
	assert.Equal(t, "HQ/R2/P2/auto/BK2", deletes[0].Subject)
	assert.Equal(t, events.OriginDelete, deletes[0].Origin)
	assert.Len(t, res.Diagnostics.ByKind(reconcile.KindOrphan), 1)
}

func TestReconcileNoDeletesWithoutAutomationMenu(t *testing.T) {
	r := testRules()
	r.AutomationMenu = ""
	rs := compile(t, r)
	res := reconcile.Reconcile([]events.Record{
		booking(tenAM, tenAM.Add(time.Hour), "HQ、、R1、P1、BK1", "x"),
	}, rs)
	assert.False(t, res.HasChanges())
}

func TestReconcileMalformedBookingSkipped(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		booking(tenAM, tenAM.Add(time.Hour), "HQ、auto、R1", "Broken"),
	}, rs)

	assert.False(t, res.HasChanges())
	malformed := res.Diagnostics.ByKind(reconcile.KindMalformed)
	require.Len(t, malformed, 1)
	assert.True(t, pkgerrors.IsMalformedBooking(malformed[0].Err))
	assert.Equal(t, 1, res.Stats.Skipped)
}

func TestReconcileDuplicateKeysYieldOneAdd(t *testing.T) {
	r := testRules()
	r.CompareLength = 5
	rs := compile(t, r)
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R1", "Weekly Sync A"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Weekly Sync A"),
		source(tenAM, tenAM.Add(time.Hour), "R1", "Weekly Sync B"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Weekly Sync B"),
	}, rs)

	assert.Equal(t, 2, res.Stats.Meetings)
	assert.Len(t, res.Changes(), 1)
}

func TestReconcileNoDuplicateAddsAfterClaim(t *testing.T) {
	r := testRules()
	r.CompareLength = 5
	rs := compile(t, r)
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "R1", "Weekly Sync A"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Weekly Sync A"),
		source(tenAM, tenAM.Add(time.Hour), "R1", "Weekly Sync B"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Weekly Sync B"),
		booking(tenAM, tenAM.Add(time.Hour), "HQ、auto、R1、P1、BK1", "Weekly"),
	}, rs)

	assert.False(t, res.HasChanges())
}

func TestReconcileIdempotentAfterPerfectApply(t *testing.T) {
	rs := compile(t, testRules())
	end := tenAM.Add(time.Hour)
	records := []events.Record{
		source(tenAM, end, "R1", "Design review (v2)"),
		source(tenAM, end, "P1", "Design review (v2)"),
		source(tenAM, end, "P2", "Design review (v2)"),
		source(tenAM, end, "B1", "Branch stand-up"),
		source(tenAM.Add(2*time.Hour), tenAM.Add(2*time.Hour), "P3", "Call"),
		booking(tenAM, end, "HQ、auto、R2、P2、BK7", "Gone"),
		booking(tenAM, end, "HQ、manual、R2、P1、BK8", "Manual"),
	}

	first := reconcile.Reconcile(records, rs)
	require.True(t, first.HasChanges())

	second := reconcile.Reconcile(applyPerfectly(t, records, first.Changes()), rs)
	assert.False(t, second.HasChanges(), "unexpected changes: %v", second.Changes())
}

// applyPerfectly simulates a sink that applied every change exactly.
func applyPerfectly(t *testing.T, records, changes []events.Record) []events.Record {
	t.Helper()
	deleted := make(map[string]bool)
	var out []events.Record
	for i, c := range changes {
		id, err := events.ParseIdentity(c.Subject, events.DefaultSeparator)
		require.NoError(t, err)
		switch c.Origin {
		case events.OriginDelete:
			deleted[id.Ref] = true
		case events.OriginAdd:
			subject := id.Office + "、auto、" + id.Resource + "、" + id.Person + "、NEW" + string(rune('A'+i))
			out = append(out, booking(c.Start, c.End, subject, c.Description))
		}
	}
	for _, r := range records {
		if r.Origin == tgt {
			id, err := events.ParseIdentity(r.Subject, "、")
			if err == nil && deleted[id.Ref] {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func TestReconcileUnknownOriginIgnored(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		{Origin: "other", Start: tenAM, End: tenAM, Subject: "R1"},
	}, rs)

	assert.Equal(t, 1, res.Stats.Ignored)
	assert.Len(t, res.Diagnostics.ByKind(reconcile.KindUnknownOrigin), 1)
}

func TestReconcileMissingMappingFailsOneMeeting(t *testing.T) {
	r := testRules()
	r.Persons = append(r.Persons, reconcile.Person{Tag: "P9"})
	rs := compile(t, r)
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM.Add(time.Hour), "P9", "Orphaned"),
		source(tenAM, tenAM.Add(time.Hour), "R1", "Fine"),
		source(tenAM, tenAM.Add(time.Hour), "P1", "Fine"),
	}, rs)

	errs := res.Diagnostics.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, reconcile.KindMissingMapping, errs[0].Kind)
	assert.True(t, pkgerrors.IsMissingMapping(errs[0].Err))
	assert.Equal(t, 1, res.Stats.Failed)
	assert.Equal(t, []string{"HQ/R1/P1"}, subjects(res.Changes()))
}

func TestResultSummary(t *testing.T) {
	rs := compile(t, testRules())
	res := reconcile.Reconcile([]events.Record{
		source(tenAM, tenAM, "R1", "Weekly Sync"),
		source(tenAM, tenAM, "P1", "Weekly Sync"),
	}, rs)
	assert.Equal(t, "source 2 → meetings 1 → changes 1 (+1 -0, 0 in sync)", res.Summary())
}

func TestChangesetFilter(t *testing.T) {
	cs := reconcile.NewChangeset([]events.Record{
		{Origin: events.OriginAdd, Subject: "HQ/R1/P1"},
		{Origin: events.OriginDelete, Subject: "HQ/R2/P2/auto/BK2"},
		{Origin: events.OriginAdd, Subject: "HQ/R2/P1"},
	})
	assert.Equal(t, reconcile.ChangesetSummary{Adds: 2, Deletes: 1, Total: 3}, cs.Summary)

	tests := []struct {
		strategy reconcile.ApplyStrategy
		want     []string
	}{
		{reconcile.ApplyAll, []string{"HQ/R1/P1", "HQ/R2/P2/auto/BK2", "HQ/R2/P1"}},
		{reconcile.ApplyAdditionsOnly, []string{"HQ/R1/P1", "HQ/R2/P1"}},
		{reconcile.ApplyDeletionsOnly, []string{"HQ/R2/P2/auto/BK2"}},
		{reconcile.ApplyNone, []string{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			assert.Equal(t, tt.want, subjects(cs.Filter(tt.strategy).Changes))
		})
	}
}

func TestParseApplyStrategy(t *testing.T) {
	s, err := reconcile.ParseApplyStrategy("")
	require.NoError(t, err)
	assert.Equal(t, reconcile.ApplyAll, s)

	s, err = reconcile.ParseApplyStrategy("Additions-Only")
	require.NoError(t, err)
	assert.Equal(t, reconcile.ApplyAdditionsOnly, s)

	_, err = reconcile.ParseApplyStrategy("additive")
	assert.Error(t, err)

	assert.Equal(t, reconcile.ApplyNone, reconcile.StrategyFor(true, true))
	assert.Equal(t, reconcile.ApplyDeletionsOnly, reconcile.StrategyFor(true, false))
	assert.Equal(t, reconcile.ApplyAdditionsOnly, reconcile.StrategyFor(false, true))
	assert.Equal(t, reconcile.ApplyAll, reconcile.StrategyFor(false, false))
}

func TestChangesetPrint(t *testing.T) {
	cs := reconcile.NewChangeset([]events.Record{{
		Origin:      events.OriginAdd,
		Start:       tenAM,
		End:         tenAM.Add(10 * time.Minute),
		Subject:     "HQ/R1/P1",
		Description: "Weekly Sync",
	}})
	var buf bytes.Buffer
	cs.Print(&buf)
	assert.Contains(t, buf.String(), "Changeset: 1 to add, 0 to delete")
	assert.Contains(t, buf.String(), `+  1 01/10 10:00～10:10 HQ/R1/P1 "Weekly Sync"`)

	assert.Equal(t, "No changes detected", reconcile.NewChangeset(nil).String())
	assert.Equal(t, "abc…", reconcile.Shorten("abcdef", 3))
}
