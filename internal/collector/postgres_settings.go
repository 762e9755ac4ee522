package collector

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// settingsQuery reads every GUC whose value comes from a server-wide source
// (built-in default, configuration file, override, environment variable,
// command line, global; per-database, per-user and session values are
// skipped, same filter the teacher applies, see guc.c's GucSource_Names for
// the full set of source names) plus the handful of settings that name an
// on-disk file, unioned together and told apart by the synthetic kind column.
const settingsQuery = `SELECT name, setting, unit, vartype, 'setting' AS kind FROM pg_show_all_settings()
WHERE source IN ('default','configuration file','override','environment variable','command line','global')
UNION ALL
SELECT name, setting, '' AS unit, '' AS vartype, 'file' AS kind FROM pg_show_all_settings()
WHERE name IN ('config_file','hba_file','ident_file','data_directory')`

var settingsUnitRE = regexp.MustCompile(`^(?i)([0-9]*)([a-z]+)$`)

// NewPostgresSettingsFactory returns a Factory exposing configuration
// settings (spec §6 pg_show_all_settings) and the on-disk files backing
// them, as an info-style gauge pinned at 1/value.
func NewPostgresSettingsFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "settings", "setting_info"),
				"Labeled information about a configuration setting; value holds the normalized numeric setting where applicable.",
				[]string{"name", "setting", "unit", "vartype"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "settings", "file_info"),
				"Labeled information about a configuration-related file on disk.",
				[]string{"guc", "mode", "path"}, constLabels),
		}

		return registry.Definition{
			Name:  "pg_settings",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: settingsQuery, Project: settingsProjector},
			},
		}
	}
}

func settingsProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	var metrics []prometheus.Metric
	for _, row := range res.Rows {
		name, setting := row[cols["name"]].String, row[cols["setting"]].String

		if row[cols["kind"]].String == "file" {
			metrics = append(metrics, fileInfoMetric(descs[1], name, setting))
			continue
		}

		unit, vartype := row[cols["unit"]].String, row[cols["vartype"]].String
		display, value, err := normalizeSetting(setting, unit, vartype)
		if err != nil {
			log.Warnf("pg_settings: normalize %s failed: %s; skip", name, err)
			continue
		}
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[0], prometheus.GaugeValue, value, name, display, unit, vartype))
	}

	return metrics, nil
}

// fileInfoMetric stats the file named by a config-file GUC to report its
// permission mode; a stat failure still yields a sample with mode "unknown"
// rather than silently dropping the file's presence in pg_settings.
func fileInfoMetric(desc *prometheus.Desc, guc, path string) prometheus.Metric {
	mode := "unknown"
	if fi, err := os.Stat(path); err != nil {
		log.Warnf("pg_settings: stat %s failed: %s", path, err)
	} else {
		mode = fmt.Sprintf("%04o", fi.Mode().Perm())
	}
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, guc, mode, path)
}

// normalizeSetting converts a raw pg_settings row into a display setting
// string and a float64 usable as a gauge value, applying pg_settings.unit
// conversions for integer/real vartypes (the value is otherwise meaningless
// for enum/string settings, which get value 0).
func normalizeSetting(setting, unit, vartype string) (string, float64, error) {
	switch vartype {
	case "enum", "string":
		return setting, 0, nil
	case "bool":
		switch setting {
		case "off":
			return setting, 0, nil
		case "on":
			return setting, 1, nil
		default:
			return "", 0, fmt.Errorf("invalid bool value: %q", setting)
		}
	case "integer", "real":
		factor, err := unitFactor(unit)
		if err != nil {
			return "", 0, err
		}

		v, err := strconv.ParseFloat(setting, 64)
		if err != nil {
			return "", 0, err
		}
		if v >= 0 {
			v *= factor
		}

		if vartype == "integer" && v >= 1 {
			return strconv.FormatFloat(v, 'f', 0, 64), v, nil
		}

		display := strings.TrimRight(strconv.FormatFloat(v, 'f', 5, 64), "0")
		display = strings.TrimRight(display, ".")
		if display == "" {
			display = "0"
		}
		return display, v, nil
	default:
		return "", 0, fmt.Errorf("unknown vartype: %q", vartype)
	}
}

// unitFactor normalizes pg_settings.unit (e.g. "8kB", "ms") to a multiplier
// against bytes or seconds.
func unitFactor(unit string) (float64, error) {
	if unit == "" {
		return 1, nil
	}

	match := settingsUnitRE.FindStringSubmatch(unit)
	if len(match) != 3 {
		return 1, fmt.Errorf("invalid unit: %q", unit)
	}

	factor := 1.0
	if match[1] != "" {
		v, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 1, err
		}
		factor = v
	}

	switch match[2] {
	case "B":
		return factor, nil
	case "kB":
		return factor * 1024, nil
	case "MB":
		return factor * 1024 * 1024, nil
	case "GB":
		return factor * 1024 * 1024 * 1024, nil
	case "TB":
		return factor * 1024 * 1024 * 1024 * 1024, nil
	case "ms":
		return factor * 0.001, nil
	case "s":
		return factor, nil
	case "min":
		return factor * 60, nil
	case "h":
		return factor * 3600, nil
	case "d":
		return factor * 86400, nil
	default:
		return 1, fmt.Errorf("unknown unit suffix: %q", match[2])
	}
}
