package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peergrade-go-api/internal/apperr"
	"github.com/noah-isme/peergrade-go-api/internal/middleware"
	"github.com/noah-isme/peergrade-go-api/internal/models"
	"github.com/noah-isme/peergrade-go-api/internal/service"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// studentItemFromQuery reads the (student, course, item) triple identifying
// a workflow from query parameters.
func studentItemFromQuery(c *fiber.Ctx) (models.StudentItem, error) {
	item := models.StudentItem{
		StudentID: strings.TrimSpace(c.Query("student_id")),
		CourseID:  strings.TrimSpace(c.Query("course_id")),
		ItemID:    strings.TrimSpace(c.Query("item_id")),
	}
	if item.StudentID == "" || item.CourseID == "" || item.ItemID == "" {
		return models.StudentItem{}, errors.New("student_id, course_id and item_id are required")
	}
	return item, nil
}

func requirementsFromQuery(c *fiber.Ctx) (service.Requirements, error) {
	mustGrade, err := parseQueryInt(c, "must_grade")
	if err != nil {
		return service.Requirements{}, errors.New("must_grade must be an integer")
	}
	mustBeGradedBy, err := parseQueryInt(c, "must_be_graded_by")
	if err != nil {
		return service.Requirements{}, errors.New("must_be_graded_by must be an integer")
	}
	return service.Requirements{MustGrade: mustGrade, MustBeGradedBy: mustBeGradedBy}, nil
}

func userIDStringFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// statusForError maps service errors onto HTTP status codes. Workflow-state
// sentinels that mean "nothing here" map to 404, the remaining workflow
// conflicts to 409, malformed input to 400; anything else is a 500.
func statusForError(err error) int {
	var requestErr *apperr.RequestError
	var workflowErr *apperr.WorkflowError

	switch {
	case errors.Is(err, service.ErrSubmissionMissing),
		errors.Is(err, service.ErrScoreNotRecorded),
		errors.Is(err, service.ErrNoSubmissionsAvailable):
		return fiber.StatusNotFound
	case errors.As(err, &requestErr), isValidationError(err):
		return fiber.StatusBadRequest
	case errors.As(err, &workflowErr):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
