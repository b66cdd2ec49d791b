package progress

import (
	"context"

	"Draks/internal/domain/models"
	"Draks/pkg/kafka"
	"Draks/pkg/logger"
)

// KafkaSink publishes progress events to a Kafka topic, keyed by job id
// so one job's events land on one partition in order.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewKafkaSink creates a Kafka progress sink.
func NewKafkaSink(producer *kafka.Producer, topic string, log *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, log: log}
}

func (s *KafkaSink) Publish(ctx context.Context, ev models.ProgressEvent) {
	if err := s.producer.Publish(ctx, s.topic, []byte(ev.JobID), ev); err != nil {
		s.log.Warn("progress kafka publish failed",
			logger.String("job_id", ev.JobID),
			logger.Error(err))
	}
}
