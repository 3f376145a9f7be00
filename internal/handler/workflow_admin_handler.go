package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peergrade-go-api/internal/dto"
	"github.com/noah-isme/peergrade-go-api/internal/service"
	"github.com/noah-isme/peergrade-go-api/internal/utils"
)

// WorkflowAdminHandler exposes staff operations on peer workflows.
type WorkflowAdminHandler struct {
	service   service.PeerService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewWorkflowAdminHandler builds the admin workflow handler.
func NewWorkflowAdminHandler(service service.PeerService, validator *validator.Validate, logger zerolog.Logger) *WorkflowAdminHandler {
	return &WorkflowAdminHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "workflow_admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *WorkflowAdminHandler) Register(router fiber.Router) {
	router.Post("/workflows/:uuid/cancel", h.cancel)
}

func (h *WorkflowAdminHandler) cancel(c *fiber.Ctx) error {
	var payload dto.WorkflowCancelRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cancelledBy := strings.TrimSpace(payload.CancelledBy)
	if cancelledBy == "" {
		cancelledBy = userIDStringFromContext(c)
	}

	if err := h.service.CancelWorkflow(c.UserContext(), c.Params("uuid"), cancelledBy, payload.Comments); err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Str("submission_uuid", c.Params("uuid")).
		Str("cancelled_by", cancelledBy).
		Msg("workflow cancelled by staff")

	return utils.SendSuccess(c, "workflow cancelled", nil)
}

func (h *WorkflowAdminHandler) handleError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}
