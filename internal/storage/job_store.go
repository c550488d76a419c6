package storage

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
)

// ErrJobExists is returned when a job id is already present in the store.
var ErrJobExists = errors.New("job already exists")

// JobStore はジョブ状態をメモリ上で保持する。
// 件数上限と有効期限を持ち、Create のたびに期限切れ・超過分を削除する。
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*models.Job
	order   []string // creation order, oldest first
	dataDir string
	maxJobs int
	expiry  time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// NewJobStore creates a store whose working directories live under dataDir.
func NewJobStore(dataDir string, maxJobs int, expiry time.Duration, log *logger.Logger) *JobStore {
	if log == nil {
		log = logger.Nop()
	}
	return &JobStore{
		jobs:    make(map[string]*models.Job),
		dataDir: dataDir,
		maxJobs: max(1, maxJobs),
		expiry:  expiry,
		log:     log,
		now:     time.Now,
	}
}

// JobDir returns the working directory for a job.
func (s *JobStore) JobDir(jobID string) string {
	return filepath.Join(s.dataDir, jobID)
}

// Create は pending 状態のジョブを登録する
func (s *JobStore) Create(jobID, url, videoID string) (models.Job, error) {
	s.mu.Lock()
	if _, ok := s.jobs[jobID]; ok {
		s.mu.Unlock()
		return models.Job{}, ErrJobExists
	}

	now := s.now()
	evicted := s.sweepLocked(now)

	job := &models.Job{
		ID:        jobID,
		Status:    models.JobStatusPending,
		Message:   "waiting to start",
		URL:       url,
		VideoID:   videoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[jobID] = job
	s.order = append(s.order, jobID)
	evicted = append(evicted, s.trimLocked()...)
	snapshot := *job
	s.mu.Unlock()

	for _, id := range evicted {
		s.CleanupArtifacts(id)
	}
	return snapshot, nil
}

// sweepLocked drops every record older than the expiry window.
func (s *JobStore) sweepLocked(now time.Time) []string {
	if s.expiry <= 0 {
		return nil
	}
	var expired []string
	for _, id := range s.order {
		if now.Sub(s.jobs[id].CreatedAt) > s.expiry {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.removeLocked(id)
		s.log.Info("job expired", "job_id", id)
	}
	return expired
}

// trimLocked evicts the oldest-created records while the store is over capacity.
func (s *JobStore) trimLocked() []string {
	var evicted []string
	for len(s.order) > s.maxJobs {
		id := s.order[0]
		s.removeLocked(id)
		evicted = append(evicted, id)
		s.log.Info("job evicted", "job_id", id, "max_jobs", s.maxJobs)
	}
	return evicted
}

func (s *JobStore) removeLocked(jobID string) bool {
	if _, ok := s.jobs[jobID]; !ok {
		return false
	}
	delete(s.jobs, jobID)
	if i := slices.Index(s.order, jobID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

// Get はジョブのスナップショットを返す
func (s *JobStore) Get(jobID string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// Update merges u into the job. It reports false when the job no longer exists.
func (s *JobStore) Update(jobID string, u models.JobUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false
	}
	u.Apply(job, s.now())
	return true
}

// Delete removes the record only. Artifacts are removed by CleanupArtifacts.
func (s *JobStore) Delete(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(jobID)
}

// Stats は件数とステータス別の集計を返す
func (s *JobStore) Stats() models.JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[models.JobStatus]int{
		models.JobStatusPending:    0,
		models.JobStatusProcessing: 0,
		models.JobStatusCompleted:  0,
		models.JobStatusFailed:     0,
	}
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return models.JobStats{
		TotalJobs:    len(s.jobs),
		MaxJobs:      s.maxJobs,
		StatusCounts: counts,
	}
}

// CleanupArtifacts removes the job's working directory. Failures are logged only.
func (s *JobStore) CleanupArtifacts(jobID string) {
	if jobID == "" {
		return
	}
	dir := s.JobDir(jobID)
	if err := os.RemoveAll(dir); err != nil {
		s.log.Warn("failed to remove job directory", "job_id", jobID, "dir", dir, "error", err)
	}
}
