package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"recipeshorts/internal/models"
)

func TestEncodeEvent(t *testing.T) {
	raw, err := encode(models.ProgressEvent{
		JobID:     "j1",
		Status:    models.JobStatusProcessing,
		Progress:  25,
		Step:      models.JobStepDownload,
		Message:   "다운로드 완료!",
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"job_id":"j1"`, `"status":"processing"`, `"progress":25`, `"step":"download"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("payload %s missing %s", raw, want)
		}
	}
}

func TestNewRedisPublisherRequiresAddr(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), RedisOptions{}, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), models.ProgressEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
