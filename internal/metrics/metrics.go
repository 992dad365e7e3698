// Package metrics exports simulation gauges and counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/colonysim/internal/colony"
	"github.com/talgya/colonysim/internal/economy"
	"github.com/talgya/colonysim/internal/engine"
	"github.com/talgya/colonysim/internal/events"
)

// Recorder owns a private registry. It counts flows as an events.Consumer
// and mirrors levels from snapshots via Publish.
type Recorder struct {
	registry *prometheus.Registry
	names    map[colony.ID]string

	population *prometheus.GaugeVec
	resources  *prometheus.GaugeVec
	harvested  *prometheus.GaugeVec
	simDays    prometheus.Gauge

	produced *prometheus.CounterVec
	consumed *prometheus.CounterVec
	created  *prometheus.CounterVec
	deaths   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

// NewRecorder registers every collector. names maps colony IDs to the
// label used for them.
func NewRecorder(names map[colony.ID]string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		names:    names,
		population: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colonysim_population",
			Help: "Citizens per colony and bucket (total, younglings, working, retirees).",
		}, []string{"colony", "bucket"}),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colonysim_resource_amount",
			Help: "Current resource pool level.",
		}, []string{"colony", "kind"}),
		harvested: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "colonysim_farm_harvested",
			Help: "Harvest accumulated this cycle, summed per colony and farm kind.",
		}, []string{"colony", "kind"}),
		simDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "colonysim_days_elapsed",
			Help: "Simulated days since the starting date.",
		}),
		produced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colonysim_resource_produced_total",
			Help: "Resource units added to colony pools.",
		}, []string{"colony", "kind"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colonysim_resource_consumed_total",
			Help: "Resource units taken from colony pools.",
		}, []string{"colony", "kind"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colonysim_citizens_created_total",
			Help: "Citizens added to a colony.",
		}, []string{"colony"}),
		deaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colonysim_deaths_total",
			Help: "Citizens removed, by cause.",
		}, []string{"colony", "cause"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "colonysim_worker_requests_total",
			Help: "Farm staffing requests, by farm kind.",
		}, []string{"colony", "kind"}),
	}
	r.registry.MustRegister(r.population, r.resources, r.harvested, r.simDays,
		r.produced, r.consumed, r.created, r.deaths, r.requests)
	return r
}

// NamesFromRegistry builds the colony label map for NewRecorder.
func NamesFromRegistry(reg *colony.Registry) map[colony.ID]string {
	names := make(map[colony.ID]string, reg.Len())
	for _, c := range reg.All() {
		names[c.ID] = c.Name
	}
	return names
}

func (r *Recorder) label(id colony.ID) string {
	if name, ok := r.names[id]; ok {
		return name
	}
	return strconv.FormatUint(id, 10)
}

// Consume implements events.Consumer.
func (r *Recorder) Consume(_ time.Time, q *events.Queue) {
	for _, e := range q.ResourceCreated {
		r.produced.WithLabelValues(r.label(e.Colony), e.Kind.String()).Add(e.Amount)
	}
	for _, e := range q.ResourceConsumed {
		r.consumed.WithLabelValues(r.label(e.Colony), e.Kind.String()).Add(e.Amount)
	}
	for _, e := range q.CitizenCreated {
		r.created.WithLabelValues(r.label(e.Colony)).Inc()
	}
	for _, e := range q.CitizenDied {
		r.deaths.WithLabelValues(r.label(e.Colony), e.Cause.String()).Inc()
	}
	for _, e := range q.FarmNeedsWorker {
		r.requests.WithLabelValues(r.label(e.Colony), e.Kind.String()).Inc()
	}
}

// Publish copies the levels of snap into the gauges.
func (r *Recorder) Publish(snap engine.Snapshot) {
	r.simDays.Set(float64(snap.Days))
	for _, c := range snap.Colonies {
		name := r.label(c.ID)
		p := c.Population
		r.population.WithLabelValues(name, "total").Set(float64(p.Count))
		r.population.WithLabelValues(name, "younglings").Set(float64(p.Younglings))
		r.population.WithLabelValues(name, "working").Set(float64(p.WorkingPop))
		r.population.WithLabelValues(name, "retirees").Set(float64(p.Retirees))
		for _, pool := range c.Resources {
			r.resources.WithLabelValues(name, pool.Kind.String()).Set(pool.Amount)
		}
		var harvested [2]float64
		for _, f := range c.Farms {
			if int(f.Kind) < len(harvested) {
				harvested[f.Kind] += f.Harvested
			}
		}
		for _, kind := range economy.FarmKinds {
			r.harvested.WithLabelValues(name, kind.String()).Set(harvested[kind])
		}
	}
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
