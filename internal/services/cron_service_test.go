package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tourbooking/booking-backend/internal/config"
)

func TestCronService_StartRegistersJobs(t *testing.T) {
	env := newTestEnv()
	cronSvc := NewCronService(env.remediation, config.DefaultRemediationConfig(), nil, testLogger())

	require.NoError(t, cronSvc.Start())
	defer cronSvc.Stop()

	status := cronSvc.GetJobStatus()
	assert.Equal(t, 2, status["job_count"])
	assert.Equal(t, true, status["running"])
	assert.NotContains(t, status, "last_scan")
}

func TestCronService_InvalidSchedule(t *testing.T) {
	env := newTestEnv()
	cfg := config.DefaultRemediationConfig()
	cfg.UrgentCron = "every four hours"

	err := NewCronService(env.remediation, cfg, nil, testLogger()).Start()
	assert.Error(t, err)
}

func TestCronService_RunNowRecordsLastScan(t *testing.T) {
	env := newTestEnv()
	env.seedSchedule(1_000_000, 20, 2, 9)
	cronSvc := NewCronService(env.remediation, config.DefaultRemediationConfig(), nil, testLogger()).
		WithClock(func() time.Time { return testNow })

	report := cronSvc.RunRemediationNow(context.Background())
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.EarlyPromos)

	status := cronSvc.GetJobStatus()
	assert.Equal(t, 0, status["job_count"])
	require.Contains(t, status, "last_scan")
}
