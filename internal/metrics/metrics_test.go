package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProm(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("imagestore", reg)

	p.IncStored("primary")
	p.IncStored("primary")
	p.IncStored("size")
	p.IncRejected("conflict")
	p.IncDeletes("deferred")
	p.IncSweeps("ok")
	p.SetPendingCleanup(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.stored.WithLabelValues("primary")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.stored.WithLabelValues("size")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rejected.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.deletes.WithLabelValues("deferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.sweeps.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.pendingCleanup))
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	assert.NotPanics(t, func() {
		r.IncStored("primary")
		r.IncRejected("invalid_format")
		r.IncDeletes("ok")
		r.IncSweeps("contention")
		r.SetPendingCleanup(0)
	})
}
