package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/videomerger/api/internal/model"
	"github.com/videomerger/api/internal/service"
	"github.com/videomerger/api/pkg/response"
)

type MergeHandler struct {
	merges    *service.MergeService
	jobs      *service.JobService
	validator *validator.Validate
}

func NewMergeHandler(merges *service.MergeService, jobs *service.JobService, v *validator.Validate) *MergeHandler {
	return &MergeHandler{
		merges:    merges,
		jobs:      jobs,
		validator: v,
	}
}

// Merge handles POST /merge: the full pipeline runs within the request
func (h *MergeHandler) Merge(c *fiber.Ctx) error {
	var req model.MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if len(req.Videos) == 0 {
		return response.ValidationError(c, "No videos provided", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.merges.Merge(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBusy):
			return response.Busy(c, "Server at capacity, try again later")
		case errors.Is(err, service.ErrTooManyVideos):
			return response.ValidationError(c, err.Error(), nil)
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.OK(c, result)
}

// StartAsync handles POST /merge/async
func (h *MergeHandler) StartAsync(c *fiber.Ctx) error {
	var req model.MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if len(req.Videos) == 0 {
		return response.ValidationError(c, "No videos provided", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.jobs.StartMerge(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /merge/status/:jobId
func (h *MergeHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.GetStatus(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /merge/result/:jobId
func (h *MergeHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.GetResult(c.Context(), jobID)
	if err != nil {
		if err.Error() == "job not found" {
			return response.NotFound(c, "Job not found")
		}
		if err.Error() == "job not completed" {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
