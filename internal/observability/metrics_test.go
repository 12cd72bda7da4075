// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package observability_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/deckhall/deckhall/internal/observability"
	"github.com/deckhall/deckhall/internal/presence"
)

var _ presence.Observer = (*observability.Metrics)(nil)

func TestMetrics_PresenceGaugeFollowsDeltas(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.ConnectionsChanged(1)
	m.ConnectionsChanged(1)
	m.ConnectionsChanged(-1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.PresenceConnections), 0)
}

func TestMetrics_AuthAttemptsByOutcome(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	m.AuthAttempt("login", "authenticated")
	m.AuthAttempt("login", "rejected")
	m.AuthAttempt("login", "rejected")
	m.AuthAttempt("signup", "error")

	assert.InDelta(t, 1, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "authenticated")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("signup", "error")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.AuthAttemptsTotal))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)

	assert.Panics(t, func() { observability.NewMetrics(reg) })
}
