package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

// fakeScraper satisfies the scraper interface without opening a database
// connection, so Gather's deadline/merge behavior can be driven directly.
type fakeScraper struct {
	desc    *prometheus.Desc
	delay   time.Duration
	upValue float64
}

func newFakeScraper(cluster string, delay time.Duration, upValue float64) *fakeScraper {
	return &fakeScraper{
		desc:    prometheus.NewDesc("pg_up", "fake up gauge", nil, prometheus.Labels{"cluster": cluster}),
		delay:   delay,
		upValue: upValue,
	}
}

func (f *fakeScraper) PgUpDesc() *prometheus.Desc { return f.desc }

func (f *fakeScraper) Scrape(ctx context.Context) []prometheus.Metric {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
	return []prometheus.Metric{prometheus.MustNewConstMetric(f.desc, prometheus.GaugeValue, f.upValue)}
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestCoordinator_Gather_deadlineExceededYieldsPgUpZero covers spec §8
// scenario 2 and §4.5 deadline enforcement: a worker whose Scrape blocks
// past the scrape deadline must not hold up Gather, and its partial result
// is discarded in favor of a synthetic pg_up=0.
func TestCoordinator_Gather_deadlineExceededYieldsPgUpZero(t *testing.T) {
	c := &Coordinator{
		workers:       []scraper{newFakeScraper("slow", time.Second, 1)},
		scrapeTimeout: time.Second,
	}

	start := time.Now()
	families, err := c.Gather(context.Background(), 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, elapsed, 500*time.Millisecond, "Gather must return at the deadline, not wait for the slow worker")

	pgUp := findFamily(families, "pg_up")
	assert.NotNil(t, pgUp)
	assert.Len(t, pgUp.Metric, 1)
	assert.Equal(t, float64(0), pgUp.Metric[0].GetGauge().GetValue())
}

// TestCoordinator_Gather_mergesMultipleInstances covers spec §8 scenario 3:
// samples from independent instance workers are merged into one family,
// each keeping its own constant-label tuple.
func TestCoordinator_Gather_mergesMultipleInstances(t *testing.T) {
	c := &Coordinator{
		workers: []scraper{
			newFakeScraper("c1", 0, 1),
			newFakeScraper("c2", 0, 1),
		},
		scrapeTimeout: time.Second,
	}

	families, err := c.Gather(context.Background(), time.Second)
	assert.NoError(t, err)

	pgUp := findFamily(families, "pg_up")
	assert.NotNil(t, pgUp)
	assert.Len(t, pgUp.Metric, 2)

	clusters := map[string]float64{}
	for _, m := range pgUp.Metric {
		clusters[labelValue(m, "cluster")] = m.GetGauge().GetValue()
	}
	assert.Equal(t, map[string]float64{"c1": 1, "c2": 1}, clusters)
}

// TestCoordinator_Gather_noWorkersYieldsNoError covers the degenerate case
// of a coordinator with no configured instances.
func TestCoordinator_Gather_noWorkersYieldsNoError(t *testing.T) {
	c := New(nil, time.Second)

	families, err := c.Gather(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, families)
}
