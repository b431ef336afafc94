// internal/models/job.go
package models

import "time"

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is the persisted record of one uploaded document.
type Job struct {
	JobID     string     `json:"job_id" bson:"job_id"`
	Filename  string     `json:"filename" bson:"filename"`
	Status    JobStatus  `json:"status" bson:"status"`
	Step      string     `json:"step" bson:"step"`
	Progress  int        `json:"progress" bson:"progress"`
	Error     string     `json:"error,omitempty" bson:"error,omitempty"`
	Result    *JobResult `json:"result,omitempty" bson:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// JobResult summarises a completed job.
type JobResult struct {
	JobID           string         `json:"job_id" bson:"job_id"`
	Pages           int            `json:"pages" bson:"pages"`
	ArticleCount    int            `json:"article_count" bson:"article_count"`
	KeywordsSummary []KeywordCount `json:"keywords_summary" bson:"keywords_summary"`
}

// JobStatusView is the status endpoint payload.
type JobStatusView struct {
	JobID    string    `json:"job_id"`
	Status   JobStatus `json:"status"`
	Step     string    `json:"step"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

func (j *Job) StatusView() JobStatusView {
	return JobStatusView{
		JobID:    j.JobID,
		Status:   j.Status,
		Step:     j.Step,
		Progress: j.Progress,
		Error:    j.Error,
	}
}

// ProcessResult is the result endpoint payload: the summary plus the stored articles.
type ProcessResult struct {
	JobID           string         `json:"job_id"`
	Pages           int            `json:"pages"`
	Articles        []Article      `json:"articles"`
	KeywordsSummary []KeywordCount `json:"keywords_summary"`
}
