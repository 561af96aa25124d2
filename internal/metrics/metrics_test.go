package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(Votes.WithLabelValues("A"))
	Votes.WithLabelValues("A").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(Votes.WithLabelValues("A")), 1e-9)

	before = testutil.ToFloat64(DuelsCreated)
	DuelsCreated.Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(DuelsCreated), 1e-9)
}
