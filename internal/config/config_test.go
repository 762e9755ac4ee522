package config

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "pg_exporter-config-*.yaml")
	assert.NoError(t, err)
	_, err = f.WriteString(content)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const sampleConfig = `
listen_addr: "127.0.0.1:9090"
instances:
  pg15:
    dsn: "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable"
    const_labels:
      cluster: c1
    collect_top_query: 5
`

func TestNewConfig(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)

	cfg, err := NewConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	assert.Contains(t, cfg.Instances, "pg15")
	assert.Equal(t, 5, cfg.Instances["pg15"].CollectTopQuery)

	_, err = NewConfig("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestConfig_Validate_defaults(t *testing.T) {
	cfg := &Config{
		ListenAddr: "127.0.0.1:9090",
		Instances: map[string]Instance{
			"pg15": {DSN: "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable"},
		},
	}

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, defaultEndpoint, cfg.Endpoint)
	assert.NotEmpty(t, cfg.Instances["pg15"].Filters)
}

func TestConfig_Validate_missingListenAddr(t *testing.T) {
	cfg := &Config{
		Instances: map[string]Instance{
			"pg15": {DSN: "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable"},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_noInstances(t *testing.T) {
	cfg := &Config{ListenAddr: "127.0.0.1:9090"}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_invalidDSN(t *testing.T) {
	cfg := &Config{
		ListenAddr: "127.0.0.1:9090",
		Instances: map[string]Instance{
			"bad": {DSN: "this is not a dsn ::::"},
		},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfig_Validate_envOverrides(t *testing.T) {
	cfg := &Config{
		ListenAddr: "127.0.0.1:9090",
		Instances: map[string]Instance{
			"pg15": {DSN: "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable"},
		},
	}

	os.Setenv("PGE_LISTEN_ADDR", "0.0.0.0:9187")
	os.Setenv("PGE_INSTANCES_PG15_COLLECT_TOP_QUERY", "10")
	os.Setenv("PGE_INSTANCES_PG15_NO_TRACK_MODE", "true")
	t.Cleanup(func() {
		os.Unsetenv("PGE_LISTEN_ADDR")
		os.Unsetenv("PGE_INSTANCES_PG15_COLLECT_TOP_QUERY")
		os.Unsetenv("PGE_INSTANCES_PG15_NO_TRACK_MODE")
	})

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:9187", cfg.ListenAddr)
	assert.Equal(t, 10, cfg.Instances["pg15"].CollectTopQuery)
	assert.True(t, cfg.Instances["pg15"].NoTrackMode)
}

func TestConfig_Validate_collidingConstLabels(t *testing.T) {
	cfg := &Config{
		ListenAddr: "127.0.0.1:9090",
		Instances: map[string]Instance{
			"pg15a": {DSN: "host=127.0.0.1 dbname=a user=postgres sslmode=disable", ConstLabels: map[string]string{"cluster": "c1"}},
			"pg15b": {DSN: "host=127.0.0.1 dbname=b user=postgres sslmode=disable", ConstLabels: map[string]string{"cluster": "c1"}},
		},
	}

	// Collisions are a startup warning, not a fatal ConfigError.
	assert.NoError(t, cfg.Validate())
}
