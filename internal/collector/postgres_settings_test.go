package collector

import "testing"

func TestPostgresSettingsFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{"pg_settings_setting_info", "pg_settings_file_info"},
		factory:  NewPostgresSettingsFactory(),
	})
}
