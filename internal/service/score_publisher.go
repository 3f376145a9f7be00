package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ScoreEvent announces that a submission crossed its peer-assessment
// threshold and received a final score. Downstream grade books and dashboards
// consume it.
type ScoreEvent struct {
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	ItemID         string    `json:"item_id"`
	SubmissionUUID string    `json:"submission_uuid"`
	PointsEarned   int       `json:"points_earned"`
	PointsPossible int       `json:"points_possible"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ScorePublisher fans score events out to the configured brokers.
type ScorePublisher interface {
	Publish(ctx context.Context, event ScoreEvent) error
}

type scorePublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewScorePublisher constructs a publisher over redis pub/sub and NATS.
// Either client may be nil; publishing degrades to whatever is configured.
func NewScorePublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ScorePublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":finalized"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".finalized"
	}

	return &scorePublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "score_publisher").Logger(),
	}
}

func (p *scorePublisher) Publish(ctx context.Context, event ScoreEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			return err
		}
	}

	p.logger.Debug().
		Str("submission_uuid", event.SubmissionUUID).
		Int("points_earned", event.PointsEarned).
		Msg("score event published")

	return nil
}
