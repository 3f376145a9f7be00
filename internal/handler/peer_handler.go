package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peergrade-go-api/internal/dto"
	"github.com/noah-isme/peergrade-go-api/internal/service"
	"github.com/noah-isme/peergrade-go-api/internal/utils"
)

// PeerHandler manages the grading side of the peer step: submission
// selection, assessment recording, and progress checks.
type PeerHandler struct {
	service   service.PeerService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPeerHandler builds a peer grading handler instance.
func NewPeerHandler(service service.PeerService, validator *validator.Validate, logger zerolog.Logger) *PeerHandler {
	return &PeerHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "peer_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *PeerHandler) Register(router fiber.Router) {
	router.Get("/submissions/next", h.next)
	router.Post("/assessments", h.createAssessment)
	router.Get("/status", h.status)
	router.Get("/evaluations/finished", h.finishedEvaluating)
}

func (h *PeerHandler) next(c *fiber.Ctx) error {
	item, err := studentItemFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	requirements, err := requirementsFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.GetSubmissionToAssess(c.UserContext(), item, requirements)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission reserved", submission)
}

func (h *PeerHandler) createAssessment(c *fiber.Ctx) error {
	var payload dto.AssessmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assessment, err := h.service.CreateAssessment(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assessment recorded", assessment)
}

func (h *PeerHandler) status(c *fiber.Ctx) error {
	item, err := studentItemFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	requirements, err := requirementsFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.GetStatus(c.UserContext(), item, requirements)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "status retrieved", status)
}

func (h *PeerHandler) finishedEvaluating(c *fiber.Ctx) error {
	item, err := studentItemFromQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	required, err := parseQueryInt(c, "required")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "required must be an integer")
	}

	finished, err := h.service.HasFinishedRequiredEvaluating(c.UserContext(), item, required)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation progress retrieved", fiber.Map{"finished": finished})
}

func (h *PeerHandler) handleError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}
