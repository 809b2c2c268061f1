package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/middleware"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/render/jobs
func (h *RenderHandler) Submit(c *fiber.Ctx) error {
	var req model.SubmitRenderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), &req.Timeline)
	if err != nil {
		return h.submissionError(c, err)
	}
	return response.Accepted(c, result)
}

// SubmitBatch handles POST /api/render/batch
func (h *RenderHandler) SubmitBatch(c *fiber.Ctx) error {
	var req model.SubmitBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.SubmitBatch(c.Context(), middleware.GetUserID(c), req.Variations)
	if err != nil {
		return h.submissionError(c, err)
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/render/jobs/:jobId
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// List handles GET /api/render/jobs?status=queued,processing
func (h *RenderHandler) List(c *fiber.Ctx) error {
	statuses, err := parseStatusFilter(c.Query("status"))
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	result, err := h.service.ListJobs(c.Context(), middleware.GetUserID(c), statuses)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

// BulkDelete handles DELETE /api/render/jobs
func (h *RenderHandler) BulkDelete(c *fiber.Ctx) error {
	var req model.BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.BulkDelete(c.Context(), middleware.GetUserID(c), req.IDs)
	if err != nil {
		if errors.Is(err, service.ErrTooManyItems) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}

func (h *RenderHandler) submissionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTimeline):
		return response.InvalidTimeline(c, err.Error())
	case errors.Is(err, service.ErrQuotaExceeded):
		return response.QuotaExceeded(c, "Projected storage usage exceeds your quota")
	case errors.Is(err, service.ErrTooManyItems):
		return response.ValidationError(c, err.Error(), nil)
	default:
		return response.ServiceError(c, err.Error())
	}
}

func parseStatusFilter(raw string) ([]model.JobStatus, error) {
	if raw == "" {
		return nil, nil
	}
	var statuses []model.JobStatus
	for _, part := range strings.Split(raw, ",") {
		st := model.JobStatus(strings.TrimSpace(part))
		if st == "" {
			continue
		}
		if !model.IsValidJobStatus(st) {
			return nil, errors.New("unknown status " + string(st))
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func formatValidationErrors(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fe.Field()+" failed "+fe.Tag())
	}
	return out
}
