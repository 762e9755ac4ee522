package collector

import "testing"

func TestPostgresBgwriterFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_bgwriter_ckpt_timed_total", "pg_bgwriter_ckpt_req_total",
			"pg_bgwriter_ckpt_write_time_seconds_total", "pg_bgwriter_ckpt_sync_time_seconds_total",
			"pg_bgwriter_buffers_written_total", "pg_bgwriter_bgwr_maxwritten_clean_total",
			"pg_bgwriter_backend_fsync_total", "pg_bgwriter_backend_buffers_allocated_total",
			"pg_bgwriter_stats_age_seconds",
		},
		optional: []string{
			"pg_restartpoints_timed_total", "pg_restartpoints_req_total", "pg_restartpoints_done_total",
		},
		factory: NewPostgresBgwriterFactory(),
	})
}
