package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peergrade-go-api/internal/dto"
	"github.com/noah-isme/peergrade-go-api/internal/service"
	"github.com/noah-isme/peergrade-go-api/internal/utils"
)

// SubmissionHandler manages submission intake and lookup endpoints.
type SubmissionHandler struct {
	service   service.PeerService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.PeerService, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:uuid", h.get)
	router.Get("/:uuid/assessments", h.assessments)
	router.Get("/:uuid/score", h.score)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.SubmitResponse(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission recorded", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	submission, err := h.service.GetSubmission(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) assessments(c *fiber.Ctx) error {
	assessments, err := h.service.GetAssessments(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assessments retrieved", assessments)
}

func (h *SubmissionHandler) score(c *fiber.Ctx) error {
	score, err := h.service.GetScore(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score retrieved", score)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, status, "internal server error")
	}
	return utils.SendError(c, status, err.Error())
}
