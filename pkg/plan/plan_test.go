package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangedl/rangedl/pkg/ranges"
)

func drain(t *testing.T, ch <-chan Request) []Request {
	t.Helper()
	var got []Request
	for r := range ch {
		got = append(got, r)
	}
	return got
}

func TestPlanPartitionsWithoutGapsOrOverlaps(t *testing.T) {
	interval := ranges.InclusiveRange{Lo: 1, Hi: 3}
	numParts, ch := Plan(context.Background(), interval, 2)
	reqs := drain(t, ch)

	require.Equal(t, 2, numParts)
	require.Len(t, reqs, 2)
	assert.Equal(t, Request{PartIndex: 0, Start: 1, EndIncl: 2}, reqs[0])
	assert.Equal(t, Request{PartIndex: 1, Start: 3, EndIncl: 3}, reqs[1])

	var total uint64
	for _, r := range reqs {
		total += r.Len()
	}
	assert.Equal(t, interval.Len(), total)
}

func TestPlanEmissionOrderAndIndices(t *testing.T) {
	interval := ranges.InclusiveRange{Lo: 0, Hi: 99}
	_, ch := Plan(context.Background(), interval, 10)
	reqs := drain(t, ch)

	require.Len(t, reqs, 10)
	for i, r := range reqs {
		assert.Equal(t, i, r.PartIndex)
		if i > 0 {
			assert.Equal(t, reqs[i-1].EndIncl+1, r.Start)
		}
	}
	assert.Equal(t, uint64(99), reqs[len(reqs)-1].EndIncl)
}

func TestPlanPartSizeLargerThanIntervalYieldsOnePart(t *testing.T) {
	interval := ranges.InclusiveRange{Lo: 5, Hi: 10}
	numParts, ch := Plan(context.Background(), interval, 1000)
	reqs := drain(t, ch)

	require.Equal(t, 1, numParts)
	require.Len(t, reqs, 1)
	assert.Equal(t, interval.Lo, reqs[0].Start)
	assert.Equal(t, interval.Hi, reqs[0].EndIncl)
}

func TestPlanCeilDivision(t *testing.T) {
	cases := []struct {
		lo, hi, partSize uint64
		wantParts        int
	}{
		{0, 25, 26, 1},
		{0, 25, 5, 6},
		{0, 25, 4, 7},
		{0, 0, 1, 1},
	}
	for _, tc := range cases {
		interval := ranges.InclusiveRange{Lo: tc.lo, Hi: tc.hi}
		numParts, ch := Plan(context.Background(), interval, tc.partSize)
		reqs := drain(t, ch)
		assert.Equal(t, tc.wantParts, numParts)
		assert.Len(t, reqs, tc.wantParts)
	}
}

func TestPlanZeroPartSizePanics(t *testing.T) {
	assert.Panics(t, func() {
		Plan(context.Background(), ranges.InclusiveRange{Lo: 0, Hi: 1}, 0)
	})
}

func TestPlanStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	interval := ranges.InclusiveRange{Lo: 0, Hi: 999999}
	_, ch := Plan(ctx, interval, 1)

	<-ch // receive exactly one request
	cancel()

	// The channel must close eventually without further sends blocking
	// the test; draining confirms no send deadlocks past cancellation.
	for range ch {
	}
}
