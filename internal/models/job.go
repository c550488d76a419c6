package models

import "time"

// JobStatus is the externally visible state of a recipe extraction run.
type JobStatus string

// Job statuses.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Pipeline stage tags. Informational only; they subdivide JobStatusProcessing.
const (
	JobStepDownload = "download"
	JobStepSubtitle = "subtitle"
	JobStepSTT      = "stt"
	JobStepParsing  = "parsing"
	JobStepDone     = "done"
)

// IsTerminal reports whether no further pipeline updates are expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one recipe extraction run.
type Job struct {
	ID        string     `json:"job_id"`
	Status    JobStatus  `json:"status"`
	Progress  int        `json:"progress"`
	Step      string     `json:"step,omitempty"`
	Message   string     `json:"message"`
	URL       string     `json:"url"`
	VideoID   string     `json:"video_id"`
	VideoInfo *VideoInfo `json:"video_info,omitempty"`
	Result    *Result    `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JobUpdate is a partial update merged into an existing Job.
// Nil fields are left untouched.
type JobUpdate struct {
	Status    *JobStatus
	Progress  *int
	Step      *string
	Message   *string
	VideoInfo *VideoInfo
	Result    *Result
}

// Apply merges the update into job and bumps UpdatedAt.
func (u JobUpdate) Apply(job *Job, now time.Time) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		job.Progress = clampProgress(*u.Progress)
	}
	if u.Step != nil {
		job.Step = *u.Step
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	if u.VideoInfo != nil {
		job.VideoInfo = u.VideoInfo
	}
	if u.Result != nil {
		job.Result = u.Result
	}
	job.UpdatedAt = now
}

// Progressf builds the common progress/step/message update.
func Progressf(progress int, step, message string) JobUpdate {
	return JobUpdate{Progress: &progress, Step: &step, Message: &message}
}

// WithStatus returns a copy of the update that also sets the status.
func (u JobUpdate) WithStatus(status JobStatus) JobUpdate {
	u.Status = &status
	return u
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// JobStats summarizes the job table.
type JobStats struct {
	TotalJobs    int               `json:"total_jobs"`
	MaxJobs      int               `json:"max_jobs"`
	StatusCounts map[JobStatus]int `json:"status_counts"`
}

// ProgressEvent is published to external listeners on every job mutation.
type ProgressEvent struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// EventFromJob builds a ProgressEvent snapshot of job.
func EventFromJob(job Job) ProgressEvent {
	return ProgressEvent{
		JobID:     job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		Step:      job.Step,
		Message:   job.Message,
		Timestamp: job.UpdatedAt,
	}
}
