package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidStep     = errors.New("invalid step number")
	ErrInvalidInput    = errors.New("invalid input")
)

// SessionStore は調理セッションをメモリ上で保持する。
// 容量上限はなく、最終操作からの経過時間で期限切れになる。
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	expiry   time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func NewSessionStore(expiry time.Duration, log *logger.Logger) *SessionStore {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionStore{
		sessions: make(map[string]*models.Session),
		expiry:   expiry,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a session at step 1. The recipe must have at least one step.
func (s *SessionStore) Create(recipe models.Recipe) (models.Session, error) {
	if len(recipe.Steps) == 0 {
		return models.Session{}, fmt.Errorf("%w: recipe has no steps", ErrInvalidInput)
	}

	draft := models.Session{
		ID:             uuid.New().String(),
		Recipe:         recipe,
		CurrentStep:    1,
		CompletedSteps: []int{},
		History:        []models.Turn{},
	}
	sess := draft.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	sess.CreatedAt = now
	s.sessions[sess.ID] = &sess
	return sess.Clone(), nil
}

func (s *SessionStore) sweepLocked(now time.Time) {
	if s.expiry <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > s.expiry {
			delete(s.sessions, id)
			s.log.Info("chat session expired", "session_id", id)
		}
	}
}

func (s *SessionStore) Get(id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// CompleteStep marks step done. Completing an already-completed step changes nothing.
// A new completion moves the current step forward unless it was the last one.
func (s *SessionStore) CompleteStep(id string, step int) (models.StepCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.StepCompletion{}, ErrSessionNotFound
	}
	total := sess.TotalSteps()
	if step < 1 || step > total {
		return models.StepCompletion{}, fmt.Errorf("%w: %d (total %d)", ErrInvalidStep, step, total)
	}

	if !sess.IsCompleted(step) {
		sess.CompletedSteps = append(sess.CompletedSteps, step)
		slices.Sort(sess.CompletedSteps)
		if step < total {
			sess.CurrentStep = step + 1
		}
	}

	return models.StepCompletion{
		StepNumber: step,
		NextStep:   sess.CurrentStep,
		IsFinished: len(sess.CompletedSteps) == total,
	}, nil
}

// CommitTurn appends a user/assistant pair, moves the session to step and refreshes its activity time.
func (s *SessionStore) CommitTurn(id string, step int, user, assistant models.Turn) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	if step < 1 || step > sess.TotalSteps() {
		return models.Session{}, fmt.Errorf("%w: %d (total %d)", ErrInvalidStep, step, sess.TotalSteps())
	}
	sess.History = append(sess.History, user, assistant)
	sess.CurrentStep = step
	sess.CreatedAt = s.now()
	return sess.Clone(), nil
}

// End removes the session and returns its summary.
func (s *SessionStore) End(id string) (models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return models.SessionSummary{}, ErrSessionNotFound
	}
	summary := models.SessionSummary{
		Recipe:         sess.Recipe.Title,
		CompletedSteps: len(sess.CompletedSteps),
		TotalSteps:     sess.TotalSteps(),
		TotalMessages:  len(sess.History),
	}
	delete(s.sessions, id)
	return summary, nil
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
