package tracker

import (
	"context"
	"testing"
	"time"

	"casetrack-backend/internal/components/chrono"

	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsBatches(t *testing.T) {
	f := setup(t)
	f.track(t, "DLHC010000012020", false)
	f.track(t, "DLHC010000022020", false)

	cron := chrono.NewFakeCron()
	s := NewScheduler(f.tracker, cron, chrono.DailySpec(3, 0), f.tel)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.Equal(t, []string{"0 3 * * *"}, cron.Specs())
	require.True(t, cron.Running())

	cron.Trigger()
	require.Eventually(t, func() bool {
		return f.client.fetchCount() == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.False(t, s.Running())
	require.False(t, cron.Running())

	cron.Trigger()
	require.Equal(t, 2, f.client.fetchCount())

	require.NoError(t, s.Start())
	require.Len(t, cron.Specs(), 1)
	cron.Trigger()
	require.Eventually(t, func() bool {
		return f.client.fetchCount() == 4
	}, time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerStopAwaitsInflight(t *testing.T) {
	f := setup(t)
	f.track(t, "DLHC010000012020", false)
	f.client.block = make(chan struct{})
	f.client.started = make(chan struct{})

	cron := chrono.NewFakeCron()
	s := NewScheduler(f.tracker, cron, chrono.DailySpec(3, 0), f.tel)
	require.NoError(t, s.Start())

	cron.Trigger()
	<-f.client.started

	require.NoError(t, s.Stop(context.Background()))
	f.client.mutex.Lock()
	defer f.client.mutex.Unlock()
	require.ErrorIs(t, f.client.blockErr, context.Canceled)
}
