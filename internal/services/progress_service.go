// internal/services/progress_service.go
package services

import (
	"sync"
	"time"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
)

// ProgressUpdate is one job progress event pushed to subscribers.
type ProgressUpdate struct {
	JobID    string           `json:"job_id"`
	Progress int              `json:"progress"`
	Step     string           `json:"step"`
	Status   models.JobStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
}

// ProgressTracker follows one job from submission to a terminal state.
type ProgressTracker struct {
	JobID       string
	Progress    int
	Step        string
	Status      models.JobStatus
	Error       string
	StartTime   time.Time
	UpdateTime  time.Time
	Subscribers map[chan ProgressUpdate]bool
	Done        chan struct{}
	mutex       sync.Mutex
}

// ProgressService keeps the live trackers of running and recently finished jobs.
type ProgressService struct {
	trackers map[string]*ProgressTracker
	mutex    sync.RWMutex
}

func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// CreateTracker returns the tracker for jobID, creating it when missing.
func (s *ProgressService) CreateTracker(jobID string) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[jobID]; exists {
		return tracker
	}

	now := time.Now()
	tracker := &ProgressTracker{
		JobID:       jobID,
		Step:        "Queued",
		Status:      models.JobPending,
		StartTime:   now,
		UpdateTime:  now,
		Subscribers: make(map[chan ProgressUpdate]bool),
		Done:        make(chan struct{}),
	}
	s.trackers[jobID] = tracker
	return tracker
}

func (s *ProgressService) GetTracker(jobID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[jobID]
	return tracker, exists
}

// UpdateProgress moves the job forward. Progress never goes backwards and
// updates after a terminal state are ignored.
func (t *ProgressTracker) UpdateProgress(progress int, step string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.Status.Terminal() {
		return
	}
	t.Status = models.JobProcessing
	if progress > t.Progress {
		t.Progress = progress
	}
	if step != "" {
		t.Step = step
	}
	t.UpdateTime = time.Now()
	t.broadcast()
}

// Complete marks the job completed at 100%.
func (t *ProgressTracker) Complete(step string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.Status.Terminal() {
		return
	}
	t.Progress = 100
	t.Step = "Completed"
	if step != "" {
		t.Step = step
	}
	t.Status = models.JobCompleted
	t.UpdateTime = time.Now()
	t.broadcast()
	close(t.Done)
}

// Fail marks the job failed; errorMsg is always recorded.
func (t *ProgressTracker) Fail(step, errorMsg string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.Status.Terminal() {
		return
	}
	if errorMsg == "" {
		errorMsg = "unknown error"
	}
	t.Progress = 100
	t.Step = step
	t.Error = errorMsg
	t.Status = models.JobFailed
	t.UpdateTime = time.Now()
	t.broadcast()
	close(t.Done)
}

// Snapshot returns the current state as an update.
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.update()
}

func (t *ProgressTracker) update() ProgressUpdate {
	return ProgressUpdate{
		JobID:    t.JobID,
		Progress: t.Progress,
		Step:     t.Step,
		Status:   t.Status,
		Error:    t.Error,
	}
}

// broadcast must be called with t.mutex held. Slow subscribers miss updates.
func (t *ProgressTracker) broadcast() {
	update := t.update()
	for subscriber := range t.Subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
}

// Subscribe returns a buffered channel that first receives the current state.
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan ProgressUpdate, 10)
	t.Subscribers[subscriber] = true
	subscriber <- t.update()
	return subscriber
}

func (t *ProgressTracker) Unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.Subscribers[subscriber]; !ok {
		return
	}
	delete(t.Subscribers, subscriber)
	close(subscriber)
}

// CleanupCompletedTasks drops finished trackers older than maxAge.
func (s *ProgressService) CleanupCompletedTasks(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	now := time.Now()
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		finished := tracker.Status.Terminal()
		isOld := now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()

		if finished && isOld {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}
