package handlers

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"recipeshorts/internal/chat"
	"recipeshorts/internal/models"
	"recipeshorts/internal/storage"
)

// ChatHandler exposes cooking sessions over HTTP.
type ChatHandler struct {
	assistant     *chat.Assistant
	maxImageBytes int64
}

func NewChatHandler(assistant *chat.Assistant, maxImageBytes int64) *ChatHandler {
	return &ChatHandler{assistant: assistant, maxImageBytes: maxImageBytes}
}

type startRequest struct {
	Recipe *models.Recipe `json:"recipe"`
}

func (h *ChatHandler) Start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil || req.Recipe == nil {
		return errorJSON(c, http.StatusBadRequest, "recipe is required")
	}
	sess, err := h.assistant.Start(*req.Recipe)
	if err != nil {
		return fail(c, err)
	}
	title := req.Recipe.Title
	if title == "" {
		title = "요리"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id":  sess.ID,
		"message":     fmt.Sprintf("'%s' 세션이 시작되었습니다!", title),
		"total_steps": sess.TotalSteps(),
	})
}

func (h *ChatHandler) Status(c echo.Context) error {
	st, err := h.assistant.Status(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *ChatHandler) Step(c echo.Context) error {
	n, err := stepParam(c)
	if err != nil {
		return fail(c, err)
	}
	info, err := h.assistant.Step(c.Param("id"), n)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (h *ChatHandler) CompleteStep(c echo.Context) error {
	n, err := stepParam(c)
	if err != nil {
		return fail(c, err)
	}
	done, err := h.assistant.CompleteStep(c.Param("id"), n)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":     fmt.Sprintf("Step %d 완료!", n),
		"step_number": done.StepNumber,
		"next_step":   done.NextStep,
		"is_finished": done.IsFinished,
	})
}

type messageRequest struct {
	SessionID   string `json:"session_id"`
	StepNumber  int    `json:"step_number"`
	Message     string `json:"message"`
	ImageBase64 string `json:"image_base64"`
}

// Message handles a JSON chat turn with an optional base64 image.
func (h *ChatHandler) Message(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(stripDataURL(req.ImageBase64))
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "invalid image_base64")
		}
		image = decoded
	}
	return h.send(c, chat.TurnRequest{
		SessionID:  req.SessionID,
		StepNumber: req.StepNumber,
		Message:    req.Message,
		Image:      image,
	})
}

// MessageWithImage handles a multipart chat turn with an optional image file.
func (h *ChatHandler) MessageWithImage(c echo.Context) error {
	step, err := strconv.Atoi(c.FormValue("step_number"))
	if err != nil {
		return fail(c, fmt.Errorf("%w: step_number", storage.ErrInvalidStep))
	}
	req := chat.TurnRequest{
		SessionID:  c.FormValue("session_id"),
		StepNumber: step,
		Message:    c.FormValue("message"),
	}

	fh, err := c.FormFile("image")
	if err == nil {
		f, err := fh.Open()
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "failed to read image")
		}
		defer f.Close()
		// one byte past the cap is enough to trip the size check
		req.Image, err = io.ReadAll(io.LimitReader(f, h.maxImageBytes+1))
		if err != nil {
			return errorJSON(c, http.StatusBadRequest, "failed to read image")
		}
	} else if err != http.ErrMissingFile {
		return errorJSON(c, http.StatusBadRequest, "invalid multipart form")
	}
	return h.send(c, req)
}

func (h *ChatHandler) send(c echo.Context, req chat.TurnRequest) error {
	res, err := h.assistant.Send(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ChatHandler) History(c echo.Context) error {
	sess, err := h.assistant.History(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"recipe_title": sess.Recipe.Title,
		"messages":     sess.History,
	})
}

func (h *ChatHandler) End(c echo.Context) error {
	summary, err := h.assistant.End(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "세션이 종료되었습니다.",
		"summary": summary,
	})
}

func stepParam(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", storage.ErrInvalidStep, c.Param("n"))
	}
	return n, nil
}

// stripDataURL accepts both raw base64 and "data:image/...;base64," URLs.
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
