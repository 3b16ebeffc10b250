package feed

import (
	"net/http"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes engine status and the confirmed climate values to
// prometheus. Observe methods only set gauges, so they are safe to call from
// engine hooks.
type Metrics struct {
	reg *prometheus.Registry

	frames     prometheus.Gauge
	tracked    prometheus.Gauge
	candidates prometheus.Gauge
	dropped    *prometheus.GaugeVec
	signals    *prometheus.GaugeVec
}

// NewMetrics registers the collectors on a private registry. hub may be nil.
func NewMetrics(hub *Hub) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{
		reg: reg,
		frames: f.NewGauge(prometheus.GaugeOpts{
			Name: "climabus_frames",
			Help: "Frames received since the engine started",
		}),
		tracked: f.NewGauge(prometheus.GaugeOpts{
			Name: "climabus_tracked_ids",
			Help: "Identifiers in the history table",
		}),
		candidates: f.NewGauge(prometheus.GaugeOpts{
			Name: "climabus_candidate_ids",
			Help: "Identifiers in the candidate table",
		}),
		dropped: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climabus_dropped_frames",
			Help: "Frames ignored because a table was full",
		}, []string{"table"}),
		signals: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climabus_signal",
			Help: "Latest confirmed climate value; absent setpoints are not exported",
		}, []string{"signal"}),
	}
	if hub != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "climabus_feed_clients",
			Help: "Connected websocket clients",
		}, func() float64 { return float64(hub.Clients()) })
	}
	return m
}

// ObserveStatus records an engine status.
func (m *Metrics) ObserveStatus(st monitor.Status) {
	m.frames.Set(float64(st.Frames))
	m.tracked.Set(float64(st.Tracked))
	m.candidates.Set(float64(st.Candidates))
	m.dropped.WithLabelValues("history").Set(float64(st.HistoryDropped))
	m.dropped.WithLabelValues("candidate").Set(float64(st.CandidateDropped))
}

// ObserveClimate records the confirmed values of a snapshot.
func (m *Metrics) ObserveClimate(s climate.Snapshot) {
	if s.HasOutside {
		m.signals.WithLabelValues("outside_f").Set(s.OutsideF)
	}
	m.setOptional("driver_setpoint_f", s.Driver, s.HasDriver)
	m.setOptional("passenger_setpoint_f", s.Passenger, s.HasPassenger)
	m.signals.WithLabelValues("fan_level").Set(float64(s.Fan))
	m.signals.WithLabelValues("dim_level").Set(float64(s.Dim))
}

func (m *Metrics) setOptional(name string, v int, ok bool) {
	if !ok {
		m.signals.DeleteLabelValues(name)
		return
	}
	m.signals.WithLabelValues(name).Set(float64(v))
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
