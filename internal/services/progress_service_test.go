package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	svc := NewProgressService()
	tracker := svc.CreateTracker("job-1")
	assert.Same(t, tracker, svc.CreateTracker("job-1"))

	updates := tracker.Subscribe()
	first := <-updates
	assert.Equal(t, models.JobPending, first.Status)
	assert.Equal(t, "job-1", first.JobID)

	tracker.UpdateProgress(30, "Detecting and splitting articles...")
	update := <-updates
	assert.Equal(t, 30, update.Progress)
	assert.Equal(t, models.JobProcessing, update.Status)

	tracker.UpdateProgress(20, "")
	update = <-updates
	assert.Equal(t, 30, update.Progress, "progress never goes backwards")
	assert.Equal(t, "Detecting and splitting articles...", update.Step)

	tracker.Complete("")
	update = <-updates
	assert.Equal(t, models.JobCompleted, update.Status)
	assert.Equal(t, 100, update.Progress)
	assert.Equal(t, "Completed", update.Step)

	select {
	case <-tracker.Done:
	default:
		t.Fatal("Done must be closed after Complete")
	}

	tracker.UpdateProgress(50, "late")
	tracker.Fail("late", "boom")
	snap := tracker.Snapshot()
	assert.Equal(t, models.JobCompleted, snap.Status)
	assert.Empty(t, snap.Error)

	tracker.Unsubscribe(updates)
	tracker.Unsubscribe(updates)
	_, open := <-updates
	assert.False(t, open)
}

func TestProgressTrackerFail(t *testing.T) {
	tracker := NewProgressService().CreateTracker("job-2")
	tracker.Fail("Processing failed", "")
	snap := tracker.Snapshot()
	assert.Equal(t, models.JobFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)
	<-tracker.Done
}

func TestCleanupCompletedTasks(t *testing.T) {
	svc := NewProgressService()
	svc.CreateTracker("running")
	done := svc.CreateTracker("done")
	done.Complete("")

	assert.Equal(t, 0, svc.CleanupCompletedTasks(time.Hour))
	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, svc.CleanupCompletedTasks(0))

	_, ok := svc.GetTracker("done")
	assert.False(t, ok)
	_, ok = svc.GetTracker("running")
	require.True(t, ok)
}
