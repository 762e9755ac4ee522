// Package config loads and validates the YAML configuration file described
// in the external interfaces (listener address, metrics endpoint, and the
// per-instance settings the runner and instance worker need), with
// environment-variable overrides layered on top.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/dbmetrics/pg_exporter/internal/filter"
	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/jackc/pgx/v4"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix environment overrides must carry (spec §6):
// PGE_LISTEN_ADDR, PGE_INSTANCES_<NAME>_DSN, etc.
const envPrefix = "PGE_"

const defaultEndpoint = "/metrics"

// Instance is one monitored PostgreSQL target (spec §3 "Instance").
type Instance struct {
	DSN             string            `yaml:"dsn"`
	ConstLabels     map[string]string `yaml:"const_labels"`
	ExcludeDBNames  []string          `yaml:"exclude_db_names"`
	CollectTopQuery int               `yaml:"collect_top_query"`
	CollectTopIndex int               `yaml:"collect_top_index"`
	CollectTopTable int               `yaml:"collect_top_table"`
	NoTrackMode     bool              `yaml:"no_track_mode"`

	// Filters is not user-facing YAML; it's compiled from filter.DefaultFilters
	// at Validate() time and consumed by the schema/tables/indexes collectors.
	Filters map[string]filter.Filter `yaml:"-"`
}

// Config is the top-level configuration file shape.
type Config struct {
	ListenAddr string              `yaml:"listen_addr"`
	Endpoint   string              `yaml:"endpoint"`
	Instances  map[string]Instance `yaml:"instances"`
}

// NewConfig reads and parses the YAML file at path.
func NewConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// Validate applies environment overrides, fills in defaults, compiles
// filters, and validates every instance DSN. It is also where the
// colliding-const-labels warning (spec §9 open question) is surfaced.
func (c *Config) Validate() error {
	c.applyEnvOverrides()

	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if len(c.Instances) == 0 {
		return fmt.Errorf("at least one instance must be configured")
	}

	seen := make(map[string]string, len(c.Instances))
	for name, inst := range c.Instances {
		if inst.DSN == "" {
			return fmt.Errorf("instance %q: dsn is required", name)
		}
		if _, err := pgx.ParseConfig(inst.DSN); err != nil {
			return fmt.Errorf("instance %q: invalid dsn: %w", name, err)
		}

		if inst.Filters == nil {
			inst.Filters = make(map[string]filter.Filter)
		}
		filter.DefaultFilters(inst.Filters)
		if err := filter.CompileFilters(inst.Filters); err != nil {
			return fmt.Errorf("instance %q: invalid filter: %w", name, err)
		}
		c.Instances[name] = inst

		key := labelSetKey(inst.ConstLabels)
		if other, ok := seen[key]; ok {
			log.Warnf("instances %q and %q share identical const_labels; their samples may collide", other, name)
		} else {
			seen[key] = name
		}
	}

	return nil
}

// labelSetKey produces a stable, comparable representation of a label set
// so colliding configurations can be detected regardless of map order.
func labelSetKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sortStrings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(';')
	}
	return b.String()
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

// applyEnvOverrides maps PGE_<DOTTED_KEY_UPPERCASED_WITH_UNDERSCORES> onto
// the matching config value. File values are loaded first; env overrides
// win (spec §6).
func (c *Config) applyEnvOverrides() {
	if v, ok := lookupEnv("listen_addr"); ok {
		c.ListenAddr = v
	}
	if v, ok := lookupEnv("endpoint"); ok {
		c.Endpoint = v
	}

	for name, inst := range c.Instances {
		prefix := "instances." + name + "."

		if v, ok := lookupEnv(prefix + "dsn"); ok {
			inst.DSN = v
		}
		if v, ok := lookupEnv(prefix + "no_track_mode"); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				inst.NoTrackMode = b
			}
		}
		if v, ok := lookupEnv(prefix + "collect_top_query"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				inst.CollectTopQuery = n
			}
		}
		if v, ok := lookupEnv(prefix + "collect_top_index"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				inst.CollectTopIndex = n
			}
		}
		if v, ok := lookupEnv(prefix + "collect_top_table"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				inst.CollectTopTable = n
			}
		}
		if v, ok := lookupEnv(prefix + "exclude_db_names"); ok {
			inst.ExcludeDBNames = strings.Split(v, ",")
		}

		c.Instances[name] = inst
	}
}

// lookupEnv maps a dotted config key to its PGE_ environment variable name.
func lookupEnv(dottedKey string) (string, bool) {
	envName := envPrefix + strings.ToUpper(strings.ReplaceAll(dottedKey, ".", "_"))
	return os.LookupEnv(envName)
}
