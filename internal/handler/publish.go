package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shiplog-io/shiplog/internal/config"
	"github.com/shiplog-io/shiplog/internal/logsource"
	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/response"
	"github.com/shiplog-io/shiplog/internal/runs"
)

// RunReader reads stored publish runs. repository.RunRepository
// implements it; nil means no provenance database is configured.
type RunReader interface {
	List(ctx context.Context, limit int) ([]model.PublishRun, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.PublishRun, error)
}

// PublishHandler handles /publish and /runs.
type PublishHandler struct {
	Recorder *runs.Recorder
	Runs     RunReader
	Region   string
	Defaults config.PublishConfig
}

type publishResponse struct {
	RunID       string `json:"run_id,omitempty"`
	LogGroup    string `json:"log_group"`
	LogStream   string `json:"log_stream"`
	StreamURL   string `json:"stream_url"`
	EventsSent  int    `json:"events_sent"`
	BatchesSent int    `json:"batches_sent"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Publish ships the request body, line by line, to the stream named by
// the group/stream query parameters (POST /publish?group=&stream=).
func (h *PublishHandler) Publish(c echo.Context) error {
	group := c.QueryParam("group")
	if group == "" {
		group = h.Defaults.Group
	}
	stream := c.QueryParam("stream")
	if stream == "" {
		stream = h.Defaults.Stream
	}
	if group == "" || stream == "" {
		return response.BadRequest(c, "missing target", "group and stream are required (query param or configured default)")
	}

	identity := model.StreamIdentity{Group: group, Stream: model.SanitizeStreamName(stream)}
	source := logsource.NewReaderSource(c.Request().Body, h.Defaults.MaxLineSize)

	run, err := h.Recorder.Publish(c.Request().Context(), source, identity, time.Now(), nil)
	resp := publishResponse{
		LogGroup:    run.LogGroup,
		LogStream:   run.LogStream,
		StreamURL:   model.StreamURL(h.Region, identity),
		EventsSent:  run.EventsSent,
		BatchesSent: run.BatchesSent,
		Status:      string(run.Status),
		Error:       run.Error,
	}
	if run.ID != uuid.Nil {
		resp.RunID = run.ID.String()
	}
	if err != nil {
		// Already-sent batches stay appended; the caller decides how
		// degraded the overall job is.
		return c.JSON(http.StatusBadGateway, resp)
	}
	return response.OK(c, resp, "")
}

// ListRuns returns recent publish runs (GET /runs).
func (h *PublishHandler) ListRuns(c echo.Context) error {
	if h.Runs == nil {
		return response.Unavailable(c, "run provenance database not configured")
	}
	list, err := h.Runs.List(c.Request().Context(), 50)
	if err != nil {
		return response.InternalError(c, "list runs", err.Error())
	}
	out := make([]publishResponse, 0, len(list))
	for _, run := range list {
		out = append(out, publishResponse{
			RunID:       run.ID.String(),
			LogGroup:    run.LogGroup,
			LogStream:   run.LogStream,
			StreamURL:   model.StreamURL(h.Region, model.StreamIdentity{Group: run.LogGroup, Stream: run.LogStream}),
			EventsSent:  run.EventsSent,
			BatchesSent: run.BatchesSent,
			Status:      string(run.Status),
			Error:       run.Error,
		})
	}
	return response.OK(c, map[string]any{"runs": out}, "")
}

// GetRun returns one publish run by id (GET /runs/:id).
func (h *PublishHandler) GetRun(c echo.Context) error {
	if h.Runs == nil {
		return response.Unavailable(c, "run provenance database not configured")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "invalid run id", err.Error())
	}
	run, err := h.Runs.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "get run", err.Error())
	}
	if run == nil {
		return response.NotFound(c, "run not found", "no run with id "+id.String())
	}
	return response.OK(c, run, "")
}
