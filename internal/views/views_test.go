package views

import (
	"context"
	"strings"
	"testing"

	"recipeshorts/internal/models"
)

func render(t *testing.T, job models.Job) string {
	t.Helper()
	var sb strings.Builder
	if err := JobPage(job).Render(context.Background(), &sb); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

func TestJobPageCompleted(t *testing.T) {
	html := render(t, models.Job{
		Status: models.JobStatusCompleted,
		Result: &models.Result{
			Recipe: &models.Recipe{
				Title:       "김치찌개 <최고>",
				Ingredients: []models.Ingredient{{Name: "김치", Amount: "200", Unit: "g"}},
				Steps:       []models.Step{{StepNumber: 1, Instruction: "김치를 볶는다", Timestamp: 75}},
			},
			VideoInfo: &models.VideoInfo{URL: "https://youtu.be/abc", Title: "영상"},
		},
	})
	for _, want := range []string{"김치찌개 &lt;최고&gt;", "김치 200g", "김치를 볶는다", "1:15", `href="https://youtu.be/abc"`} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "<최고>") {
		t.Error("title not escaped")
	}
}

func TestJobPageStates(t *testing.T) {
	pending := render(t, models.Job{Status: models.JobStatusProcessing, Progress: 35, Message: "음성 인식 중..."})
	if !strings.Contains(pending, "width:35%") || !strings.Contains(pending, `http-equiv="refresh"`) {
		t.Errorf("progress page = %s", pending)
	}

	failed := render(t, models.Job{Status: models.JobStatusFailed, Message: "download failed: private"})
	if !strings.Contains(failed, "download failed: private") || strings.Contains(failed, "refresh") {
		t.Errorf("failed page = %s", failed)
	}
}
