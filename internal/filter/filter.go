// Package filter implements include/exclude regexp filtering shared by the
// per-DB collectors (postgres_schema.go, postgres_tables.go,
// postgres_indexes.go exclude system
// catalogs and administrator-chosen noise by name).
package filter

import (
	"regexp"

	"github.com/dbmetrics/pg_exporter/internal/log"
)

// Filter describes an include/exclude regexp pair for one dimension (e.g.
// "tables/schema").
type Filter struct {
	Exclude   string `yaml:"exclude,omitempty"`
	ExcludeRE *regexp.Regexp
	Include   string `yaml:"include,omitempty"`
	IncludeRE *regexp.Regexp
}

// DefaultFilters fills in filters an instance didn't configure explicitly:
// system schemas are excluded from schema/table/index collectors by
// default, matching the catalogue's "skip noise, not signal" stance.
func DefaultFilters(filters map[string]Filter) {
	log.Debug("define default filters")

	if _, ok := filters["schema/name"]; !ok {
		filters["schema/name"] = Filter{Exclude: `^(pg_catalog|information_schema|pg_toast)$`}
	}
}

// CompileFilters compiles every Exclude/Include pattern in filters.
func CompileFilters(filters map[string]Filter) error {
	log.Debug("compile filters")

	for key, f := range filters {
		if f.Exclude != "" {
			re, err := regexp.Compile(f.Exclude)
			if err != nil {
				return err
			}
			f.ExcludeRE = re
		}

		if f.Include != "" {
			re, err := regexp.Compile(f.Include)
			if err != nil {
				return err
			}
			f.IncludeRE = re
		}

		filters[key] = f
	}

	log.Debug("filters compiled successfully")
	return nil
}

// Pass reports whether target satisfies the filter: exclude wins over
// include when both are present and match; with neither set, everything
// passes.
func (f *Filter) Pass(target string) bool {
	if f.ExcludeRE == nil && f.IncludeRE == nil {
		return true
	}

	if f.ExcludeRE != nil && f.ExcludeRE.MatchString(target) {
		return false
	}
	if f.IncludeRE != nil && !f.IncludeRE.MatchString(target) {
		return false
	}
	return true
}
