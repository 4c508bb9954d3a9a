package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { MustRegister(reg) })
}

func TestObserveWriteRecordsLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	ObserveWrite("add_word", time.Now().Add(-10*time.Millisecond))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "store_write_seconds" {
			require.Len(t, mf.GetMetric(), 1)
			assert.EqualValues(t, 1, mf.GetMetric()[0].GetHistogram().GetSampleCount())
			return
		}
	}
	t.Fatal("store_write_seconds not gathered")
}
