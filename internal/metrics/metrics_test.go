package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAuth_Counters(t *testing.T) {
	_, m := New()

	m.Signup("ok")
	m.Login("unauthorized")
	m.Login("unauthorized")
	m.SessionCreated()
	m.GuardRejected("authenticate")
	m.Pruned(3)
	m.Pruned(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signups.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardRejections.WithLabelValues("authenticate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsPruned))
}

func TestAuth_NilIsNoop(t *testing.T) {
	var m *Auth
	assert.NotPanics(t, func() {
		m.Signup("ok")
		m.Login("ok")
		m.SessionCreated()
		m.GuardRejected("verify_session")
		m.Pruned(1)
	})
}
