// Package metrics holds the Prometheus series exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Auth contains the counters recorded by the authentication core. All
// methods are safe on a nil receiver so components can run without metrics.
type Auth struct {
	Signups         *prometheus.CounterVec
	Logins          *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	GuardRejections *prometheus.CounterVec
	SessionsPruned  prometheus.Counter
}

// New creates a registry with the Go/process collectors and the auth
// counters registered on it.
func New() (*prometheus.Registry, *Auth) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, NewAuth(reg)
}

// NewAuth creates and registers the auth counters on reg.
func NewAuth(reg prometheus.Registerer) *Auth {
	m := &Auth{
		Signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmanager_auth_signups_total",
				Help: "Total number of signup attempts by result",
			},
			[]string{"result"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmanager_auth_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_auth_sessions_created_total",
			Help: "Total number of refresh-token sessions persisted",
		}),
		GuardRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskmanager_auth_guard_rejections_total",
				Help: "Total number of requests rejected by an auth guard",
			},
			[]string{"guard"},
		),
		SessionsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskmanager_auth_sessions_pruned_total",
			Help: "Total number of expired sessions removed by the pruner",
		}),
	}
	reg.MustRegister(m.Signups, m.Logins, m.SessionsCreated, m.GuardRejections, m.SessionsPruned)
	return m
}

func (m *Auth) Signup(result string) {
	if m != nil {
		m.Signups.WithLabelValues(result).Inc()
	}
}

func (m *Auth) Login(result string) {
	if m != nil {
		m.Logins.WithLabelValues(result).Inc()
	}
}

func (m *Auth) SessionCreated() {
	if m != nil {
		m.SessionsCreated.Inc()
	}
}

func (m *Auth) GuardRejected(guard string) {
	if m != nil {
		m.GuardRejections.WithLabelValues(guard).Inc()
	}
}

func (m *Auth) Pruned(n int64) {
	if m != nil && n > 0 {
		m.SessionsPruned.Add(float64(n))
	}
}
