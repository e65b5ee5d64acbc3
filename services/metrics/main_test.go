package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordBaseCall("A")
	r.RecordBaseCall("A")
	r.RecordBaseCall("-")
	r.RecordAlleles("stutter", 3)
	r.RecordAlleles("emitted", 0)
	r.RecordSinkWrite("kafka", 5)
	r.Since("filter", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(r.baseCalls.WithLabelValues("A")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.baseCalls.WithLabelValues("-")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.alleles.WithLabelValues("stutter")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.publishedCalls.WithLabelValues("kafka")))

	t.Run("should register on separate registries", func(t *testing.T) {
		assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
	})
}
