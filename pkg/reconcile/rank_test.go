package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/syncals/syncals/pkg/events"
	"github.com/syncals/syncals/pkg/reconcile"
)

func TestRank(t *testing.T) {
	at := func(h int) time.Time { return tenAM.Add(time.Duration(h) * time.Hour) }
	changes := []events.Record{
		{Origin: events.OriginDelete, Start: at(1), Subject: "HQ/R1/P1/auto/BK1"},
		{Origin: events.OriginAdd, Start: at(3), Subject: "HQ/R2/P2"},
		{Origin: events.OriginAdd, Start: at(2), Subject: "BR/B1/P3"},
		{Origin: events.OriginAdd, Start: at(0), Subject: "HQ/R1/P2"},
		{Origin: events.OriginDelete, Start: at(0), Subject: "BR/B2/P3/auto/BK2"},
	}

	rs := compile(t, testRules())
	assert.Equal(t, []string{
		"BR/B1/P3",
		"BR/B2/P3/auto/BK2",
		"HQ/R1/P2",
		"HQ/R2/P2",
		"HQ/R1/P1/auto/BK1",
	}, subjects(reconcile.Rank(changes, rs)))

	r := testRules()
	r.DeletesFirst = true
	rs = compile(t, r)
	assert.Equal(t, []string{
		"BR/B2/P3/auto/BK2",
		"BR/B1/P3",
		"HQ/R1/P1/auto/BK1",
		"HQ/R1/P2",
		"HQ/R2/P2",
	}, subjects(reconcile.Rank(changes, rs)))

	assert.Equal(t, "HQ/R1/P1/auto/BK1", changes[0].Subject, "input untouched")
}

func TestRankIsStable(t *testing.T) {
	rs := compile(t, testRules())
	changes := []events.Record{
		{Origin: events.OriginAdd, Start: tenAM, Subject: "HQ/R2/P1"},
		{Origin: events.OriginAdd, Start: tenAM, Subject: "HQ/R1/P1"},
	}
	assert.Equal(t, []string{"HQ/R2/P1", "HQ/R1/P1"}, subjects(reconcile.Rank(changes, rs)))
}
