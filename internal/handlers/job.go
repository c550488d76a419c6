package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"recipeshorts/internal/ingestion"
	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
	"recipeshorts/internal/storage"
	"recipeshorts/internal/views"
	"recipeshorts/internal/worker"
	"recipeshorts/internal/youtube"
)

// Submitter schedules background work.
type Submitter interface {
	Submit(task worker.Task) error
}

// JobHandler はジョブAPIのハンドラー
type JobHandler struct {
	jobs   *storage.JobStore
	worker Submitter
	log    *logger.Logger
}

// NewJobHandler は新しいJobHandlerを作成
func NewJobHandler(jobs *storage.JobStore, w Submitter, log *logger.Logger) *JobHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &JobHandler{jobs: jobs, worker: w, log: log}
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// Analyze validates the URL, records a pending job and schedules the pipeline.
func (h *JobHandler) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	videoID, err := youtube.ParseVideoURL(req.URL)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	jobID := uuid.New().String()
	if _, err := h.jobs.Create(jobID, req.URL, videoID); err != nil {
		return fail(c, err)
	}
	if err := h.worker.Submit(worker.Task{Type: ingestion.TaskAnalyze, ID: jobID, URL: req.URL}); err != nil {
		h.jobs.Delete(jobID)
		h.log.Warn("failed to schedule job", "job_id", jobID, "error", err)
		return fail(c, err)
	}

	h.log.Info("job created", "job_id", jobID, "video_id", videoID)
	return c.JSON(http.StatusOK, analyzeResponse{
		JobID:   jobID,
		Message: "분석이 시작되었습니다.",
	})
}

// Status returns the job without its result payload.
func (h *JobHandler) Status(c echo.Context) error {
	job, ok := h.jobs.Get(c.Param("job_id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "job not found")
	}
	job.Result = nil
	return c.JSON(http.StatusOK, job)
}

// Result returns the extraction result of a completed job.
func (h *JobHandler) Result(c echo.Context) error {
	job, ok := h.jobs.Get(c.Param("job_id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "job not found")
	}
	switch job.Status {
	case models.JobStatusFailed:
		return errorJSON(c, http.StatusBadRequest, "job failed: "+job.Message)
	case models.JobStatusCompleted:
		if job.Result != nil {
			return c.JSON(http.StatusOK, job.Result)
		}
	}
	return errorJSON(c, http.StatusBadRequest, "job not completed: "+string(job.Status))
}

// Delete removes the job record and its working directory.
func (h *JobHandler) Delete(c echo.Context) error {
	jobID := c.Param("job_id")
	if _, ok := h.jobs.Get(jobID); !ok {
		return errorJSON(c, http.StatusNotFound, "job not found")
	}
	h.jobs.CleanupArtifacts(jobID)
	h.jobs.Delete(jobID)
	return c.JSON(http.StatusOK, map[string]string{"message": "job deleted", "job_id": jobID})
}

func (h *JobHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.jobs.Stats())
}

// Page renders the job as an HTML page.
func (h *JobHandler) Page(c echo.Context) error {
	job, ok := h.jobs.Get(c.Param("job_id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	return render(c, http.StatusOK, views.JobPage(job))
}
