package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/middleware"
	"github.com/noah-isme/league-scheduler-api/internal/models"
	"github.com/noah-isme/league-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
	"github.com/noah-isme/league-scheduler-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	GenerateLegacy(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.LegacyGenerateResponse, error)
	Preview(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.PreviewScheduleResponse, error)
	Save(ctx context.Context, req dto.SaveScheduleRequest) (string, error)
	List(ctx context.Context, query dto.LeagueScheduleQuery) ([]models.LeagueSchedule, *models.Pagination, error)
	Get(ctx context.Context, id string) (*dto.LeagueScheduleDetail, error)
	Delete(ctx context.Context, id string) error
}

type scheduleExporter interface {
	Export(ctx context.Context, id string, format service.ExportFormat) (*service.ExportFile, error)
}

// ScheduleGeneratorHandler exposes league scheduling endpoints.
type ScheduleGeneratorHandler struct {
	service  scheduleGenerator
	exporter scheduleExporter
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc *service.ScheduleGeneratorService, exporter *service.ExportService) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate round-robin schedules
// @Description Enumerates valid schedules up to the solution cap. INFEASIBLE, EXHAUSTED and TIMED_OUT are reported as status with HTTP 200.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "League description"
// @Success 200 {object} response.Envelope{data=dto.GenerateScheduleResponse}
// @Failure 400 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "engine_status", result.EngineStatus)
	middleware.SetMeta(c, "search_ms", result.Stats.DurationMS)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// GenerateLegacy godoc
// @Summary Generate schedules (legacy contract)
// @Description Returns {status, solution_count, solutions} without the response envelope.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "League description"
// @Success 200 {object} dto.LegacyGenerateResponse
// @Failure 400 {object} response.Envelope
// @Router /generate [post]
func (h *ScheduleGeneratorHandler) GenerateLegacy(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	result, err := h.service.GenerateLegacy(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview godoc
// @Summary Preview a single candidate schedule
// @Description Solves once and returns the candidate with its balance report and validity.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "League description"
// @Success 200 {object} response.Envelope{data=dto.PreviewScheduleResponse}
// @Failure 400 {object} response.Envelope
// @Router /schedules/preview [post]
func (h *ScheduleGeneratorHandler) Preview(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save one accepted schedule of a proposal
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.SaveScheduleRequest true "Save schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/save [post]
func (h *ScheduleGeneratorHandler) Save(c *gin.Context) {
	var req dto.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	req.CreatedBy = currentUserID(c)
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"scheduleId": id})
}

// List godoc
// @Summary List saved schedules
// @Tags Schedules
// @Produce json
// @Param search query string false "Name contains"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [get]
func (h *ScheduleGeneratorHandler) List(c *gin.Context) {
	var query dto.LeagueScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a saved schedule with its report
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope{data=dto.LeagueScheduleDetail}
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [get]
func (h *ScheduleGeneratorHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete a saved schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Security BearerAuth
// @Router /schedules/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a saved schedule
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /schedules/{id}/export [get]
func (h *ScheduleGeneratorHandler) Export(c *gin.Context) {
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Content-Length", strconv.Itoa(len(file.Data)))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func bindGenerateRequest(c *gin.Context) (dto.GenerateScheduleRequest, bool) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid generate payload"))
		return req, false
	}
	return req, true
}
