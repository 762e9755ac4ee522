package instance

import (
	"context"
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/registry"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestWorker_Scrape_unreachableYieldsOnlyPgUpZero(t *testing.T) {
	w := New(Settings{
		Name:        "unreachable",
		DSN:         "host=192.0.2.1 port=1 dbname=postgres user=postgres connect_timeout=1",
		ConstLabels: map[string]string{"cluster": "c1"},
	}, registry.New())

	metrics := w.Scrape(context.Background())
	assert.Len(t, metrics, 1)

	var pb dto.Metric
	assert.NoError(t, metrics[0].Write(&pb))
	assert.Equal(t, float64(0), pb.Gauge.GetValue())
}

func TestWorker_pgUpDescCarriesConstLabels(t *testing.T) {
	w := New(Settings{
		Name:        "pg15",
		DSN:         "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable",
		ConstLabels: map[string]string{"cluster": "c1"},
	}, registry.New())

	assert.Contains(t, w.pgUpDesc.String(), "cluster")
}
