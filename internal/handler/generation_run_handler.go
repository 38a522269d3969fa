package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/service"
	"github.com/noah-isme/league-scheduler-api/pkg/response"
)

type generationRuns interface {
	Submit(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationRunResponse, error)
	Get(ctx context.Context, id string) (*dto.GenerationRunResponse, error)
}

// GenerationRunHandler exposes asynchronous generation endpoints.
type GenerationRunHandler struct {
	runs generationRuns
}

// NewGenerationRunHandler constructs the handler.
func NewGenerationRunHandler(runs *service.GenerationRunService) *GenerationRunHandler {
	return &GenerationRunHandler{runs: runs}
}

// Submit godoc
// @Summary Queue a generation run
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "League description"
// @Success 202 {object} response.Envelope{data=dto.GenerationRunResponse}
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/runs [post]
func (h *GenerationRunHandler) Submit(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	run, err := h.runs.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+run.RunID)
	response.Accepted(c, run)
}

// Get godoc
// @Summary Get a generation run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope{data=dto.GenerationRunResponse}
// @Failure 404 {object} response.Envelope
// @Router /schedules/runs/{id} [get]
func (h *GenerationRunHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
