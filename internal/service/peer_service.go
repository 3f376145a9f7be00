package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/apperr"
	"github.com/noah-isme/peergrade-go-api/internal/dto"
	"github.com/noah-isme/peergrade-go-api/internal/models"
	"github.com/noah-isme/peergrade-go-api/internal/observability"
	"github.com/noah-isme/peergrade-go-api/internal/repository"
)

// Requirements carries the author-configured grading quotas: how many peers
// each student must grade, and how many peer grades each submission needs
// before it is scored. must_grade >= must_be_graded_by always holds.
type Requirements struct {
	MustGrade      int
	MustBeGradedBy int
}

// Validate enforces positivity and the quota invariant.
func (r Requirements) Validate() error {
	if r.MustGrade <= 0 || r.MustBeGradedBy <= 0 {
		return apperr.Request("grading requirements must be positive")
	}
	if r.MustGrade < r.MustBeGradedBy {
		return apperr.Request("must_grade (%d) cannot be lower than must_be_graded_by (%d)", r.MustGrade, r.MustBeGradedBy)
	}
	return nil
}

// PeerService is the workflow engine's public surface: submission intake,
// grader allocation, assessment recording, quota checks, status, and
// cancellation.
type PeerService interface {
	SubmitResponse(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	GetSubmissionToAssess(ctx context.Context, item models.StudentItem, requirements Requirements) (dto.SubmissionResponse, error)
	CreateAssessment(ctx context.Context, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error)
	HasFinishedRequiredEvaluating(ctx context.Context, item models.StudentItem, required int) (bool, error)
	GetAssessments(ctx context.Context, submissionUUID string) ([]dto.AssessmentResponse, error)
	GetStatus(ctx context.Context, item models.StudentItem, requirements Requirements) (dto.PeerStatusResponse, error)
	GetSubmission(ctx context.Context, submissionUUID string) (dto.SubmissionResponse, error)
	GetScore(ctx context.Context, submissionUUID string) (dto.ScoreResponse, error)
	CancelWorkflow(ctx context.Context, submissionUUID, cancelledBy, comments string) error
}

type peerService struct {
	submissions repository.SubmissionRepository
	workflows   repository.PeerWorkflowRepository
	assessments repository.AssessmentRepository
	scores      repository.ScoreRepository
	rubrics     RubricService
	publisher   ScorePublisher
	defaults    Requirements
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewPeerService constructs the peer workflow engine.
func NewPeerService(
	submissionRepo repository.SubmissionRepository,
	workflowRepo repository.PeerWorkflowRepository,
	assessmentRepo repository.AssessmentRepository,
	scoreRepo repository.ScoreRepository,
	rubricService RubricService,
	publisher ScorePublisher,
	defaults Requirements,
	validate *validator.Validate,
	logger zerolog.Logger,
) PeerService {
	return &peerService{
		submissions: submissionRepo,
		workflows:   workflowRepo,
		assessments: assessmentRepo,
		scores:      scoreRepo,
		rubrics:     rubricService,
		publisher:   publisher,
		defaults:    defaults,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "peer_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peergrade-go-api/internal/service/peer"),
		now:         time.Now,
	}
}

// SubmitResponse appends the response to the ledger and enters it into the
// peer step by creating its workflow row.
func (s *peerService) SubmitResponse(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, &apperr.RequestError{Msg: "invalid submission payload", Err: err}
	}

	submission := models.Submission{
		StudentID: payload.StudentID,
		CourseID:  payload.CourseID,
		ItemID:    payload.ItemID,
		Answer:    datatypes.JSON(payload.Answer),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, apperr.Internal("failed to record submission", err)
	}

	if _, err := s.workflows.GetOrCreate(ctx, submission); err != nil {
		return dto.SubmissionResponse{}, apperr.Internal("failed to enter submission into peer step", err)
	}

	s.logger.Info().
		Str("submission_uuid", submission.UUID).
		Str("student_id", submission.StudentID).
		Str("item_id", submission.ItemID).
		Int("attempt_number", submission.AttemptNumber).
		Msg("submission entered peer step")

	return dto.NewSubmissionResponse(submission), nil
}

// GetSubmissionToAssess hands the requester the next submission needing a
// peer review. A still-open reservation is returned before a new one is
// made, so re-requests are stable.
func (s *peerService) GetSubmissionToAssess(ctx context.Context, item models.StudentItem, requirements Requirements) (dto.SubmissionResponse, error) {
	requirements = s.withDefaults(requirements)
	if err := requirements.Validate(); err != nil {
		return dto.SubmissionResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "peer.get_submission_to_assess", trace.WithAttributes(
		attribute.String("peer.student_id", item.StudentID),
		attribute.String("peer.item_id", item.ItemID),
	))
	defer span.End()

	scorer, err := s.workflows.GetLatestByStudentItem(ctx, item)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "scorer_not_in_pool")
			return dto.SubmissionResponse{}, ErrScorerNotInPool
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, apperr.Internal("failed to resolve scorer workflow", err)
	}

	if open, openErr := s.workflows.OpenItem(ctx, scorer.ID); openErr == nil {
		submission, subErr := s.submissions.GetByUUID(ctx, open.SubmissionUUID)
		if subErr != nil {
			span.RecordError(subErr)
			return dto.SubmissionResponse{}, apperr.Internal("failed to load reserved submission", subErr)
		}
		span.SetAttributes(attribute.Bool("peer.reservation_reused", true))
		return dto.NewSubmissionResponse(submission), nil
	} else if !errors.Is(openErr, gorm.ErrRecordNotFound) {
		span.RecordError(openErr)
		return dto.SubmissionResponse{}, apperr.Internal("failed to check open reservations", openErr)
	}

	submission, err := s.workflows.ReserveNext(ctx, scorer, requirements.MustBeGradedBy)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "pool_empty")
			return dto.SubmissionResponse{}, ErrNoSubmissionsAvailable
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, apperr.Internal("failed to reserve submission", err)
	}

	observability.SubmissionsReserved().Inc()
	span.SetAttributes(attribute.String("peer.reserved_uuid", submission.UUID))

	return dto.NewSubmissionResponse(submission), nil
}

// CreateAssessment records a grader's completed evaluation and re-evaluates
// the workflow transitions for both sides: the author (did their submission
// reach its required peer count?) and the scorer (have they graded enough
// peers, measured against their own most recent submission?).
func (s *peerService) CreateAssessment(ctx context.Context, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, &apperr.RequestError{Msg: "invalid assessment payload", Err: err}
	}

	requirements := s.withDefaults(Requirements{
		MustGrade:      intOrZero(payload.MustGrade),
		MustBeGradedBy: intOrZero(payload.MustBeGradedBy),
	})
	if err := requirements.Validate(); err != nil {
		return dto.AssessmentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "peer.create_assessment", trace.WithAttributes(
		attribute.String("peer.submission_uuid", payload.SubmissionUUID),
		attribute.String("peer.scorer_id", payload.ScorerID),
	))
	defer span.End()

	author, err := s.workflows.GetBySubmissionUUID(ctx, payload.SubmissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "workflow_not_found")
			return dto.AssessmentResponse{}, ErrSubmissionMissing
		}
		span.RecordError(err)
		return dto.AssessmentResponse{}, apperr.Internal("failed to resolve author workflow", err)
	}

	if author.IsCancelled() {
		span.SetStatus(codes.Error, "workflow_cancelled")
		return dto.AssessmentResponse{}, ErrWorkflowCancelled
	}

	if author.StudentID == payload.ScorerID {
		span.SetStatus(codes.Error, "self_assessment")
		return dto.AssessmentResponse{}, apperr.Workflow("students cannot peer-assess their own submission")
	}

	scorerItem := models.StudentItem{
		StudentID: payload.ScorerID,
		CourseID:  author.CourseID,
		ItemID:    author.ItemID,
	}
	scorer, err := s.workflows.GetLatestByStudentItem(ctx, scorerItem)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "scorer_not_in_pool")
			return dto.AssessmentResponse{}, ErrScorerNotInPool
		}
		span.RecordError(err)
		return dto.AssessmentResponse{}, apperr.Internal("failed to resolve scorer workflow", err)
	}

	rubric, err := s.rubrics.GetOrCreate(ctx, payload.Rubric)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentResponse{}, err
	}

	parts, pointsEarned, err := s.buildParts(rubric, payload.OptionsSelected, payload.CriterionFeedback)
	if err != nil {
		span.SetStatus(codes.Error, "selection_invalid")
		return dto.AssessmentResponse{}, err
	}

	assessment := models.Assessment{
		SubmissionUUID: payload.SubmissionUUID,
		RubricID:       rubric.ID,
		ScorerID:       payload.ScorerID,
		ScoreType:      models.ScoreTypePeer,
		Feedback:       strings.TrimSpace(s.sanitizer.Sanitize(payload.OverallFeedback)),
		PointsEarned:   pointsEarned,
		PointsPossible: rubric.PointsPossible(),
		ScoredAt:       s.now().UTC(),
		Parts:          parts,
	}

	if err := s.assessments.CreatePeer(ctx, &assessment, scorer.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotReserved):
			span.SetStatus(codes.Error, "not_reserved")
			return dto.AssessmentResponse{}, ErrNotReserved
		case errors.Is(err, repository.ErrItemAlreadyScored):
			span.SetStatus(codes.Error, "duplicate_assessment")
			return dto.AssessmentResponse{}, ErrDuplicateAssessment
		default:
			span.RecordError(err)
			return dto.AssessmentResponse{}, apperr.Internal("failed to persist assessment", err)
		}
	}

	observability.AssessmentsRecorded().WithLabelValues("peer").Inc()

	if err := s.finalizeAuthor(ctx, payload.SubmissionUUID, requirements.MustBeGradedBy); err != nil {
		span.RecordError(err)
		return dto.AssessmentResponse{}, err
	}

	if err := s.updateScorerProgress(ctx, scorer, requirements.MustGrade); err != nil {
		span.RecordError(err)
		return dto.AssessmentResponse{}, apperr.Internal("failed to update scorer grading progress", err)
	}

	s.attachOptions(&assessment, rubric)

	s.logger.Info().
		Str("submission_uuid", payload.SubmissionUUID).
		Str("scorer_id", payload.ScorerID).
		Int("points_earned", pointsEarned).
		Msg("peer assessment recorded")

	return dto.NewAssessmentResponse(assessment), nil
}

// finalizeAuthor re-evaluates the SCORED transition for the submission's
// author and publishes the score event when the threshold is crossed. It is
// idempotent and safe to re-run from read paths, which is also how a
// transient finalization failure heals: the next evaluation finds the
// assessments still on record and completes the transition.
func (s *peerService) finalizeAuthor(ctx context.Context, submissionUUID string, mustBeGradedBy int) error {
	score, finalized, err := s.workflows.FinalizeScore(ctx, submissionUUID, mustBeGradedBy)
	if err != nil {
		s.logger.Error().Err(err).
			Str("submission_uuid", submissionUUID).
			Msg("failed to finalize score")
		return apperr.Internal("failed to finalize score", err)
	}
	if !finalized {
		return nil
	}

	observability.ScoresFinalized().Inc()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Bool("peer.score_finalized", true),
		attribute.Int("peer.points_earned", score.PointsEarned),
	)

	event := ScoreEvent{
		StudentID:      score.StudentID,
		CourseID:       score.CourseID,
		ItemID:         score.ItemID,
		SubmissionUUID: score.SubmissionUUID,
		PointsEarned:   score.PointsEarned,
		PointsPossible: score.PointsPossible,
		OccurredAt:     s.now().UTC(),
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn().Err(err).
				Str("submission_uuid", submissionUUID).
				Msg("failed to publish score event")
		}
	}

	s.logger.Info().
		Str("submission_uuid", submissionUUID).
		Int("points_earned", score.PointsEarned).
		Int("points_possible", score.PointsPossible).
		Msg("final score recorded")

	return nil
}

func (s *peerService) updateScorerProgress(ctx context.Context, scorer models.PeerWorkflow, mustGrade int) error {
	count, err := s.workflows.CountScoredByScorer(ctx, scorer.ID)
	if err != nil {
		return err
	}
	if int(count) >= mustGrade && scorer.GradingCompletedAt == nil {
		return s.workflows.MarkGradingComplete(ctx, scorer.ID)
	}
	return nil
}

// buildParts resolves the grader's selections against the rubric tree,
// enforcing exactly one option per scored criterion and rejecting unknown
// criterion or option names.
func (s *peerService) buildParts(rubric models.Rubric, selected map[string]string, feedback map[string]string) ([]models.AssessmentPart, int, error) {
	consumed := make(map[string]struct{}, len(selected))
	parts := make([]models.AssessmentPart, 0, len(rubric.Criteria))
	pointsEarned := 0

	for _, criterion := range rubric.Criteria {
		if len(criterion.Options) == 0 {
			// Feedback-only criterion; no option selection expected.
			continue
		}

		optionName, ok := selected[criterion.Name]
		if !ok {
			return nil, 0, apperr.Request("missing selection for criterion %q", criterion.Name)
		}
		consumed[criterion.Name] = struct{}{}

		option, found := rubric.FindOption(criterion.Name, strings.TrimSpace(optionName))
		if !found {
			return nil, 0, apperr.Request("unknown option %q for criterion %q", optionName, criterion.Name)
		}

		pointsEarned += int(option.Points)
		parts = append(parts, models.AssessmentPart{
			OptionID: option.ID,
			Feedback: strings.TrimSpace(s.sanitizer.Sanitize(feedback[criterion.Name])),
		})
	}

	for name := range selected {
		if _, ok := consumed[name]; !ok {
			return nil, 0, apperr.Request("unknown criterion %q in selection", name)
		}
	}

	return parts, pointsEarned, nil
}

// attachOptions fills in the option associations on a freshly created
// assessment so responses carry option names without a reload.
func (s *peerService) attachOptions(assessment *models.Assessment, rubric models.Rubric) {
	optionsByID := make(map[uint]models.CriterionOption)
	for _, criterion := range rubric.Criteria {
		for _, option := range criterion.Options {
			optionsByID[option.ID] = option
		}
	}
	for i := range assessment.Parts {
		if option, ok := optionsByID[assessment.Parts[i].OptionID]; ok {
			assessment.Parts[i].Option = option
		}
	}
}

// HasFinishedRequiredEvaluating reports whether the student has completed at
// least required scored evaluations, stamping grading completion on the way.
func (s *peerService) HasFinishedRequiredEvaluating(ctx context.Context, item models.StudentItem, required int) (bool, error) {
	if required < 0 {
		return false, apperr.Request("required evaluation count must not be negative")
	}

	workflow, err := s.workflows.GetLatestByStudentItem(ctx, item)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No workflow means zero scored evaluations, which still
			// satisfies a zero requirement.
			return required == 0, nil
		}
		return false, apperr.Internal("failed to resolve workflow", err)
	}

	count, err := s.workflows.CountScoredByScorer(ctx, workflow.ID)
	if err != nil {
		return false, apperr.Internal("failed to count evaluations", err)
	}

	finished := int(count) >= required
	if finished && workflow.GradingCompletedAt == nil {
		if err := s.workflows.MarkGradingComplete(ctx, workflow.ID); err != nil {
			s.logger.Warn().Err(err).Uint("workflow_id", workflow.ID).Msg("failed to stamp grading completion")
		}
	}

	return finished, nil
}

func (s *peerService) GetAssessments(ctx context.Context, submissionUUID string) ([]dto.AssessmentResponse, error) {
	assessments, err := s.assessments.ListPeerBySubmission(ctx, submissionUUID)
	if err != nil {
		return nil, apperr.Internal("failed to list assessments", err)
	}

	return dto.NewAssessmentResponseSlice(assessments), nil
}

func (s *peerService) GetStatus(ctx context.Context, item models.StudentItem, requirements Requirements) (dto.PeerStatusResponse, error) {
	requirements = s.withDefaults(requirements)
	if err := requirements.Validate(); err != nil {
		return dto.PeerStatusResponse{}, err
	}

	workflow, err := s.workflows.GetLatestByStudentItem(ctx, item)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PeerStatusResponse{}, ErrScorerNotInPool
		}
		return dto.PeerStatusResponse{}, apperr.Internal("failed to resolve workflow", err)
	}

	// Re-evaluate the SCORED transition on every status read. A finalization
	// that failed after the threshold-crossing assessment landed completes
	// here instead of leaving the submission stuck.
	if !workflow.IsScored() && !workflow.IsCancelled() {
		if err := s.finalizeAuthor(ctx, workflow.SubmissionUUID, requirements.MustBeGradedBy); err != nil {
			return dto.PeerStatusResponse{}, err
		}
		workflow, err = s.workflows.GetBySubmissionUUID(ctx, workflow.SubmissionUUID)
		if err != nil {
			return dto.PeerStatusResponse{}, apperr.Internal("failed to reload workflow", err)
		}
	}

	graded, err := s.workflows.CountScoredByScorer(ctx, workflow.ID)
	if err != nil {
		return dto.PeerStatusResponse{}, apperr.Internal("failed to count evaluations", err)
	}

	received, err := s.assessments.CountPeerBySubmission(ctx, workflow.SubmissionUUID)
	if err != nil {
		return dto.PeerStatusResponse{}, apperr.Internal("failed to count received assessments", err)
	}

	status := dto.PeerStatusResponse{
		SubmissionUUID:  workflow.SubmissionUUID,
		GradedCount:     int(graded),
		MustGrade:       requirements.MustGrade,
		GradingComplete: workflow.GradingCompletedAt != nil || int(graded) >= requirements.MustGrade,
		ReceivedCount:   int(received),
		MustBeGradedBy:  requirements.MustBeGradedBy,
		Scored:          workflow.IsScored(),
		Cancelled:       workflow.IsCancelled(),
	}

	if score, scoreErr := s.scores.GetBySubmission(ctx, workflow.SubmissionUUID); scoreErr == nil {
		earned := score.PointsEarned
		possible := score.PointsPossible
		status.PointsEarned = &earned
		status.PointsPossible = &possible
	}

	return status, nil
}

func (s *peerService) GetSubmission(ctx context.Context, submissionUUID string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByUUID(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionMissing
		}
		return dto.SubmissionResponse{}, apperr.Internal("failed to load submission", err)
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *peerService) GetScore(ctx context.Context, submissionUUID string) (dto.ScoreResponse, error) {
	score, err := s.scores.GetBySubmission(ctx, submissionUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The assessments may have crossed the threshold without the score
		// landing; re-evaluating the transition heals that before answering.
		healErr := s.finalizeAuthor(ctx, submissionUUID, s.defaults.MustBeGradedBy)
		if healErr != nil && !errors.Is(healErr, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, healErr
		}
		score, err = s.scores.GetBySubmission(ctx, submissionUUID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, ErrScoreNotRecorded
		}
		return dto.ScoreResponse{}, apperr.Internal("failed to load score", err)
	}

	return dto.NewScoreResponse(score), nil
}

// CancelWorkflow removes a submission from the grading pool. The grading
// history already recorded stays intact; only the workflow is voided.
func (s *peerService) CancelWorkflow(ctx context.Context, submissionUUID, cancelledBy, comments string) error {
	if strings.TrimSpace(cancelledBy) == "" {
		return apperr.Request("cancellation requires an acting user")
	}

	if err := s.workflows.Cancel(ctx, submissionUUID, cancelledBy, strings.TrimSpace(s.sanitizer.Sanitize(comments))); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionMissing
		}
		return apperr.Internal("failed to cancel workflow", err)
	}

	s.logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("cancelled_by", cancelledBy).
		Msg("peer workflow cancelled")

	return nil
}

func (s *peerService) withDefaults(requirements Requirements) Requirements {
	if requirements.MustGrade == 0 {
		requirements.MustGrade = s.defaults.MustGrade
	}
	if requirements.MustBeGradedBy == 0 {
		requirements.MustBeGradedBy = s.defaults.MustBeGradedBy
	}
	return requirements
}

func intOrZero(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
