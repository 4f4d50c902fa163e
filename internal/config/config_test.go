package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tessera.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, cpm.DefaultConfig(), cfg.SchedulerConfig())
	assert.Equal(t, "baselines", cfg.Baseline.Dir)
	assert.Equal(t, 10000, cfg.MonteCarlo.Samples)
	assert.Equal(t, 0.95, cfg.MonteCarlo.Confidence)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  hours_per_day: 7.5
  date_mode: working
baseline:
  dir: /tmp/bl
montecarlo:
  samples: 2000
`)
	t.Setenv("TESSERA_SCHEDULER_BUFFER", "0.25")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7.5, cfg.Scheduler.HoursPerDay)
	assert.Equal(t, cpm.WorkingDays, cfg.Scheduler.DateMode)
	assert.Equal(t, 0.25, cfg.Scheduler.Buffer)
	assert.Equal(t, "/tmp/bl", cfg.Baseline.Dir)
	assert.Equal(t, 2000, cfg.MonteCarlo.Samples)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"date mode":  "scheduler: {date_mode: lunar}",
		"hours":      "scheduler: {hours_per_day: 30}",
		"samples":    "montecarlo: {samples: 0}",
		"confidence": "montecarlo: {confidence: 1.2}",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(New(), writeConfig(t, body))
			assert.True(t, errs.Is(err, errs.Configuration), "got %v", err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errs.Is(err, errs.Configuration))
}
