package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peergrade-go-api/internal/apperr"
	"github.com/noah-isme/peergrade-go-api/internal/dto"
	"github.com/noah-isme/peergrade-go-api/internal/models"
	"github.com/noah-isme/peergrade-go-api/internal/repository"
)

// RubricService resolves rubric definitions to stored, immutable rubric
// trees. Identical content always resolves to the same row: definitions are
// canonicalized, hashed, and deduplicated on the hash.
type RubricService interface {
	GetOrCreate(ctx context.Context, definition dto.RubricDefinition) (models.Rubric, error)
}

type rubricService struct {
	rubrics   repository.RubricRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRubricService constructs a RubricService instance.
func NewRubricService(rubricRepo repository.RubricRepository, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) RubricService {
	return &rubricService{
		rubrics:   rubricRepo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "rubric_service").Logger(),
	}
}

func (s *rubricService) GetOrCreate(ctx context.Context, definition dto.RubricDefinition) (models.Rubric, error) {
	if err := s.validator.Struct(definition); err != nil {
		return models.Rubric{}, &apperr.RequestError{Msg: "invalid rubric definition", Err: err}
	}

	canonical := canonicalizeRubric(definition)
	if err := validateRubric(canonical); err != nil {
		return models.Rubric{}, err
	}

	contentHash, err := hashRubric(canonical)
	if err != nil {
		return models.Rubric{}, apperr.Internal("failed to hash rubric definition", err)
	}

	cacheKey := fmt.Sprintf("rubric:hash:%s", contentHash)
	if s.cache != nil {
		if cached, cacheErr := s.cache.Get(ctx, cacheKey).Result(); cacheErr == nil {
			var rubric models.Rubric
			if unmarshalErr := json.Unmarshal([]byte(cached), &rubric); unmarshalErr == nil {
				return rubric, nil
			}
		} else if cacheErr != redis.Nil {
			s.logger.Warn().Err(cacheErr).Msg("failed to read rubric cache")
		}
	}

	rubric, err := s.rubrics.GetByHash(ctx, contentHash)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rubric = buildRubric(canonical, contentHash)
		if createErr := s.rubrics.Create(ctx, &rubric); createErr != nil {
			// Another request may have stored the same content concurrently;
			// the hash lookup settles it.
			rubric, err = s.rubrics.GetByHash(ctx, contentHash)
			if err != nil {
				return models.Rubric{}, apperr.Internal("failed to store rubric", createErr)
			}
		} else {
			s.logger.Info().Str("content_hash", contentHash).Msg("rubric created")
		}
	} else if err != nil {
		return models.Rubric{}, apperr.Internal("failed to look up rubric", err)
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(rubric); marshalErr == nil {
			// Rubrics are immutable, so cached entries never go stale.
			if cacheErr := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); cacheErr != nil {
				s.logger.Warn().Err(cacheErr).Msg("failed to store rubric cache")
			}
		}
	}

	return rubric, nil
}

// canonicalizeRubric orders criteria and options by their declared order
// numbers (stable on the listed order) so that semantically equal
// definitions serialize identically.
func canonicalizeRubric(definition dto.RubricDefinition) dto.RubricDefinition {
	canonical := dto.RubricDefinition{
		Criteria: make([]dto.CriterionDefinition, len(definition.Criteria)),
	}
	copy(canonical.Criteria, definition.Criteria)
	for i := range canonical.Criteria {
		canonical.Criteria[i].Name = strings.TrimSpace(canonical.Criteria[i].Name)
	}

	sort.SliceStable(canonical.Criteria, func(i, j int) bool {
		return canonical.Criteria[i].Order < canonical.Criteria[j].Order
	})

	for i := range canonical.Criteria {
		options := make([]dto.OptionDefinition, len(canonical.Criteria[i].Options))
		copy(options, canonical.Criteria[i].Options)
		for j := range options {
			options[j].Name = strings.TrimSpace(options[j].Name)
		}
		sort.SliceStable(options, func(a, b int) bool {
			return options[a].Order < options[b].Order
		})
		canonical.Criteria[i].Options = options
	}

	return canonical
}

func validateRubric(definition dto.RubricDefinition) error {
	criterionNames := make(map[string]struct{}, len(definition.Criteria))
	for _, criterion := range definition.Criteria {
		name := strings.TrimSpace(criterion.Name)
		if name == "" {
			return apperr.Request("criterion name must not be empty")
		}
		if _, duplicate := criterionNames[name]; duplicate {
			return apperr.Request("duplicate criterion name %q", name)
		}
		criterionNames[name] = struct{}{}

		if len(criterion.Options) == 0 && !criterion.FeedbackRequired {
			return apperr.Request("criterion %q must have at least one option", name)
		}

		optionNames := make(map[string]struct{}, len(criterion.Options))
		for _, option := range criterion.Options {
			optionName := strings.TrimSpace(option.Name)
			if optionName == "" {
				return apperr.Request("option name must not be empty in criterion %q", name)
			}
			if _, duplicate := optionNames[optionName]; duplicate {
				return apperr.Request("duplicate option name %q in criterion %q", optionName, name)
			}
			optionNames[optionName] = struct{}{}
		}
	}

	return nil
}

// hashRubric computes the content address of a canonicalized definition:
// SHA-1 over its canonical JSON, excluding anything but criteria/options
// content.
func hashRubric(definition dto.RubricDefinition) (string, error) {
	type canonicalOption struct {
		Name        string `json:"name"`
		Points      uint   `json:"points"`
		Explanation string `json:"explanation"`
	}
	type canonicalCriterion struct {
		Name             string            `json:"name"`
		Prompt           string            `json:"prompt"`
		FeedbackRequired bool              `json:"feedback_required"`
		Options          []canonicalOption `json:"options"`
	}

	criteria := make([]canonicalCriterion, 0, len(definition.Criteria))
	for _, criterion := range definition.Criteria {
		options := make([]canonicalOption, 0, len(criterion.Options))
		for _, option := range criterion.Options {
			options = append(options, canonicalOption{
				Name:        option.Name,
				Points:      option.Points,
				Explanation: option.Explanation,
			})
		}
		criteria = append(criteria, canonicalCriterion{
			Name:             criterion.Name,
			Prompt:           criterion.Prompt,
			FeedbackRequired: criterion.FeedbackRequired,
			Options:          options,
		})
	}

	payload, err := json.Marshal(criteria)
	if err != nil {
		return "", err
	}

	digest := sha1.Sum(payload)
	return hex.EncodeToString(digest[:]), nil
}

func buildRubric(definition dto.RubricDefinition, contentHash string) models.Rubric {
	rubric := models.Rubric{ContentHash: contentHash}
	for i, criterion := range definition.Criteria {
		stored := models.Criterion{
			Name:     strings.TrimSpace(criterion.Name),
			OrderNum: i,
			Prompt:   criterion.Prompt,
		}
		for j, option := range criterion.Options {
			stored.Options = append(stored.Options, models.CriterionOption{
				OrderNum:    j,
				Points:      option.Points,
				Name:        strings.TrimSpace(option.Name),
				Explanation: option.Explanation,
			})
		}
		rubric.Criteria = append(rubric.Criteria, stored)
	}

	return rubric
}
