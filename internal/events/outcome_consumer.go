package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
)

// OutcomeRecorder is the slice of the routing service the consumer
// needs.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome domain.TransactionOutcome) error
}

// OutcomeConsumer reads transaction outcomes from the outcome topic
// and feeds them into the learning loop. Snapshot exports replace the
// whole statistics table, so exactly one process should consume the
// topic: the API itself, or the dedicated outcome worker.
type OutcomeConsumer struct {
	reader   *kafka.Reader
	recorder OutcomeRecorder
	validate *validator.Validate
}

func NewOutcomeConsumer(brokers []string, groupID, topic string, recorder OutcomeRecorder) (*OutcomeConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("outcome consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("outcome consumer requires a group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("outcome consumer requires a topic")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	return &OutcomeConsumer{
		reader:   reader,
		recorder: recorder,
		validate: validator.New(),
	}, nil
}

// Run consumes until the context is canceled. Malformed or
// unprocessable messages are logged and skipped; only transport
// failures stop the loop.
func (c *OutcomeConsumer) Run(ctx context.Context) error {
	logger.Info("outcome_consumer_started", "topic", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Info("outcome_consumer_stopped")
				return nil
			}
			return fmt.Errorf("failed to read outcome message: %w", err)
		}

		c.handle(ctx, msg)
	}
}

func (c *OutcomeConsumer) handle(ctx context.Context, msg kafka.Message) {
	var outcome domain.TransactionOutcome
	if err := json.Unmarshal(msg.Value, &outcome); err != nil {
		logger.Warn("outcome_message_malformed",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}

	if err := c.validate.Struct(&outcome); err != nil {
		logger.Warn("outcome_message_invalid",
			"decision_id", outcome.DecisionID,
			"error", err,
		)
		return
	}

	if err := c.recorder.RecordOutcome(ctx, outcome); err != nil {
		logger.Error("Failed to record outcome from topic",
			"decision_id", outcome.DecisionID,
			"psp", outcome.PSPName,
			"error", err,
		)
	}
}

func (c *OutcomeConsumer) Close() error {
	return c.reader.Close()
}
