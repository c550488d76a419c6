package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"recipeshorts/internal/models"
)

func recipeWithSteps(n int) models.Recipe {
	r := models.Recipe{Title: "김치찌개"}
	for i := 1; i <= n; i++ {
		r.Steps = append(r.Steps, models.Step{StepNumber: i, Instruction: fmt.Sprintf("step %d", i)})
	}
	return r
}

func newTestSessionStore(expiry time.Duration) (*SessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSessionStore(expiry, nil)
	s.now = clock.Now
	return s, clock
}

func TestSessionStoreCreate(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, err := s.Create(recipeWithSteps(5))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.TotalSteps() != 5 || sess.CurrentStep != 1 {
		t.Errorf("total=%d current=%d", sess.TotalSteps(), sess.CurrentStep)
	}
	if sess.ID == "" {
		t.Error("empty session id")
	}
	if _, err := s.Get(sess.ID); err != nil {
		t.Errorf("Get: %v", err)
	}
}

func TestSessionStoreCreateRejectsEmptyRecipe(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	if _, err := s.Create(models.Recipe{Title: "empty"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if s.Len() != 0 {
		t.Error("no session should be stored")
	}
}

func TestSessionStoreCompleteStep(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(3))

	res, err := s.CompleteStep(sess.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.NextStep != 2 || res.IsFinished {
		t.Errorf("after step 1: %+v", res)
	}

	// idempotent
	res, _ = s.CompleteStep(sess.ID, 1)
	got, _ := s.Get(sess.ID)
	if len(got.CompletedSteps) != 1 || got.CurrentStep != 2 || res.NextStep != 2 {
		t.Errorf("repeat completion changed state: %+v / %+v", got, res)
	}

	s.CompleteStep(sess.ID, 2)
	res, _ = s.CompleteStep(sess.ID, 3)
	if !res.IsFinished {
		t.Error("all steps complete should report finished")
	}
	got, _ = s.Get(sess.ID)
	if got.CurrentStep != 3 {
		t.Errorf("completing the last step must not advance past it, current=%d", got.CurrentStep)
	}
	if got.ProgressPercent() != 100 {
		t.Errorf("progress = %d", got.ProgressPercent())
	}
}

func TestSessionStoreCompleteLastStepOfFive(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(5))
	for i := 1; i <= 5; i++ {
		res, err := s.CompleteStep(sess.ID, i)
		if err != nil {
			t.Fatal(err)
		}
		if (i == 5) != res.IsFinished {
			t.Errorf("step %d finished=%v", i, res.IsFinished)
		}
	}
}

func TestSessionStoreCompleteStepInvalid(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(3))

	for _, step := range []int{0, -1, 4} {
		if _, err := s.CompleteStep(sess.ID, step); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("step %d: err = %v", step, err)
		}
	}
	if _, err := s.CompleteStep("missing", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionStoreCommitTurn(t *testing.T) {
	s, clock := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(3))
	clock.Advance(10 * time.Minute)

	user := models.Turn{Role: models.RoleUser, Content: "how long?", StepNumber: 2}
	reply := models.Turn{Role: models.RoleAssistant, Content: "5 minutes", StepNumber: 2}
	got, err := s.CommitTurn(sess.ID, 2, user, reply)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.History) != 2 || got.History[0].Role != models.RoleUser || got.History[1].Content != "5 minutes" {
		t.Errorf("history = %+v", got.History)
	}
	if got.CurrentStep != 2 {
		t.Errorf("current = %d", got.CurrentStep)
	}
	if !got.CreatedAt.Equal(clock.Now()) {
		t.Error("activity time not refreshed")
	}

	if _, err := s.CommitTurn(sess.ID, 9, user, reply); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("err = %v", err)
	}
	after, _ := s.Get(sess.ID)
	if len(after.History) != 2 {
		t.Error("rejected commit must not touch history")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	s, clock := newTestSessionStore(time.Hour)
	idle, _ := s.Create(recipeWithSteps(2))
	active, _ := s.Create(recipeWithSteps(2))

	clock.Advance(50 * time.Minute)
	s.CommitTurn(active.ID, 1, models.Turn{Role: models.RoleUser}, models.Turn{Role: models.RoleAssistant})
	clock.Advance(20 * time.Minute)

	s.Create(recipeWithSteps(1))

	if _, err := s.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session should have expired")
	}
	if _, err := s.Get(active.ID); err != nil {
		t.Error("recently active session should survive")
	}
}

func TestSessionStoreEnd(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(4))
	s.CompleteStep(sess.ID, 1)
	s.CommitTurn(sess.ID, 1, models.Turn{Role: models.RoleUser}, models.Turn{Role: models.RoleAssistant})

	sum, err := s.End(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := models.SessionSummary{Recipe: "김치찌개", CompletedSteps: 1, TotalSteps: 4, TotalMessages: 2}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("session should be removed")
	}
	if _, err := s.End(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("second End should fail")
	}
}

func TestSessionStoreGetReturnsCopy(t *testing.T) {
	s, _ := newTestSessionStore(time.Hour)
	sess, _ := s.Create(recipeWithSteps(2))
	got, _ := s.Get(sess.ID)
	got.CompletedSteps = append(got.CompletedSteps, 1)
	got.Recipe.Steps[0].Instruction = "changed"

	again, _ := s.Get(sess.ID)
	if len(again.CompletedSteps) != 0 || again.Recipe.Steps[0].Instruction == "changed" {
		t.Error("store state leaked through Get")
	}
}
