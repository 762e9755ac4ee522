package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	bgwriterQueryLegacy = `SELECT
  checkpoints_timed, checkpoints_req,
  checkpoint_write_time, checkpoint_sync_time,
  buffers_checkpoint, buffers_clean, maxwritten_clean,
  buffers_backend, buffers_backend_fsync, buffers_alloc,
  coalesce(extract('epoch' from age(now(), stats_reset)), 0) as stats_age_seconds
FROM pg_stat_bgwriter`

	// bgwriterQueryPG17 reads checkpointer-owned counters from the split-out
	// pg_stat_checkpointer view (restartpoints, spec §6: PostgresV17).
	bgwriterQueryPG17 = `SELECT
  c.num_timed AS checkpoints_timed, c.num_requested AS checkpoints_req,
  c.write_time AS checkpoint_write_time, c.sync_time AS checkpoint_sync_time,
  c.buffers_written AS buffers_checkpoint,
  c.restartpoints_timed, c.restartpoints_req, c.restartpoints_done,
  b.buffers_clean, b.maxwritten_clean,
  b.buffers_backend, b.buffers_backend_fsync, b.buffers_alloc,
  coalesce(extract('epoch' from age(now(), b.stats_reset)), 0) as stats_age_seconds
FROM pg_stat_bgwriter b, pg_stat_checkpointer c`
)

// NewPostgresBgwriterFactory returns a Factory exposing background writer
// and checkpointer statistics (spec §6 pg_stat_bgwriter / pg_stat_checkpointer).
func NewPostgresBgwriterFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "ckpt_timed_total"),
				"Total number of scheduled checkpoints that have been performed.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "ckpt_req_total"),
				"Total number of requested checkpoints that have been performed.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "ckpt_write_time_seconds_total"),
				"Total time spent writing checkpoint files to disk, in seconds.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "ckpt_sync_time_seconds_total"),
				"Total time spent synchronizing checkpoint files to disk, in seconds.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "buffers_written_total"),
				"Total number of buffers written, by source.", []string{"source"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "bgwr_maxwritten_clean_total"),
				"Total number of times the background writer stopped a cleaning scan because it had written too many buffers.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "backend_fsync_total"),
				"Total number of times a backend had to execute its own fsync call.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "backend_buffers_allocated_total"),
				"Total number of buffers allocated.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "bgwriter", "stats_age_seconds"),
				"The age of the activity statistics, in seconds.", nil, constLabels),
			// pg_restartpoints_* — standby-equivalent checkpoint counters, only
			// produced by the PG17 pg_stat_checkpointer variant (spec §6 scenario
			// 3: "pg_restartpoints_* samples appear only with the PG17 instance").
			prometheus.NewDesc(prometheus.BuildFQName("pg", "restartpoints", "timed_total"),
				"Total number of scheduled restartpoints that have been performed.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "restartpoints", "req_total"),
				"Total number of requested restartpoints that have been performed.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "restartpoints", "done_total"),
				"Total number of restartpoints that have been completed.", nil, constLabels),
		}

		return registry.Definition{
			Name:  "pg_bgwriter",
			Descs: descs,
			Variants: []registry.Variant{
				{
					Predicate: func(c model.Capabilities) bool { return c.HasRestartpoints },
					SQL:       bgwriterQueryPG17,
					Project:   bgwriterProjectorPG17,
				},
				{
					Predicate: always,
					SQL:       bgwriterQueryLegacy,
					Project:   bgwriterProjector,
				},
			},
		}
	}
}

func bgwriterProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	get := func(name string) float64 {
		idx, ok := cols[name]
		if !ok || len(res.Rows) == 0 {
			return 0
		}
		return parseFloatOrZero(res.Rows[0][idx])
	}

	var metrics []prometheus.Metric
	if len(res.Rows) == 0 {
		return metrics, nil
	}

	metrics = append(metrics,
		prometheus.MustNewConstMetric(descs[0], prometheus.CounterValue, get("checkpoints_timed")),
		prometheus.MustNewConstMetric(descs[1], prometheus.CounterValue, get("checkpoints_req")),
		prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, get("checkpoint_write_time")*.001),
		prometheus.MustNewConstMetric(descs[3], prometheus.CounterValue, get("checkpoint_sync_time")*.001),
		prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("buffers_checkpoint"), "checkpointer"),
		prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("buffers_clean"), "bgwriter"),
		prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("buffers_backend"), "backend"),
		prometheus.MustNewConstMetric(descs[5], prometheus.CounterValue, get("maxwritten_clean")),
		prometheus.MustNewConstMetric(descs[6], prometheus.CounterValue, get("buffers_backend_fsync")),
		prometheus.MustNewConstMetric(descs[7], prometheus.CounterValue, get("buffers_alloc")),
		prometheus.MustNewConstMetric(descs[8], prometheus.CounterValue, get("stats_age_seconds")),
	)

	return metrics, nil
}

// bgwriterProjectorPG17 emits the common bgwriter samples plus the
// restartpoints_* families that only exist once checkpoints have moved to
// pg_stat_checkpointer (spec §6 scenario 3).
func bgwriterProjectorPG17(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	metrics, err := bgwriterProjector(res, pctx, descs)
	if err != nil || len(res.Rows) == 0 {
		return metrics, err
	}

	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}
	get := func(name string) float64 {
		idx, ok := cols[name]
		if !ok {
			return 0
		}
		return parseFloatOrZero(res.Rows[0][idx])
	}

	metrics = append(metrics,
		prometheus.MustNewConstMetric(descs[9], prometheus.CounterValue, get("restartpoints_timed")),
		prometheus.MustNewConstMetric(descs[10], prometheus.CounterValue, get("restartpoints_req")),
		prometheus.MustNewConstMetric(descs[11], prometheus.CounterValue, get("restartpoints_done")),
	)

	return metrics, nil
}
