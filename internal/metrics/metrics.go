package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder captures storage lifecycle events.
type Recorder interface {
	IncStored(kind string)
	IncRejected(reason string)
	IncDeletes(outcome string)
	IncSweeps(outcome string)
	SetPendingCleanup(n int)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) IncStored(string)      {}
func (Noop) IncRejected(string)    {}
func (Noop) IncDeletes(string)     {}
func (Noop) IncSweeps(string)      {}
func (Noop) SetPendingCleanup(int) {}

// Prom implements Recorder backed by Prometheus collectors.
type Prom struct {
	stored         *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	sweeps         *prometheus.CounterVec
	pendingCleanup prometheus.Gauge
}

// NewProm creates the collectors under namespace and registers them with reg.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_stored_total",
			Help:      "Image files written, by kind (primary or size)",
		}, []string{"kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adds_rejected_total",
			Help:      "Add and AddSize calls that failed, by reason",
		}, []string{"reason"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Artifact deletes by outcome (ok, deferred, failed)",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_sweeps_total",
			Help:      "Cleanup sweeps by outcome",
		}, []string{"outcome"}),
		pendingCleanup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cleanup_records_pending",
			Help:      "Cleanup records left after the most recent sweep",
		}),
	}
	reg.MustRegister(p.stored, p.rejected, p.deletes, p.sweeps, p.pendingCleanup)
	return p
}

func (p *Prom) IncStored(kind string) {
	p.stored.WithLabelValues(kind).Inc()
}

func (p *Prom) IncRejected(reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}

func (p *Prom) IncDeletes(outcome string) {
	p.deletes.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncSweeps(outcome string) {
	p.sweeps.WithLabelValues(outcome).Inc()
}

func (p *Prom) SetPendingCleanup(n int) {
	p.pendingCleanup.Set(float64(n))
}
