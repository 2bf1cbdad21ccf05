package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/gometeo/weatherlookup/internal/model"
)

// Recorder persists one lookup event.
type Recorder interface {
	Record(ctx context.Context, ev model.LookupEvent) error
}

// ConsumerHandler folds lookup events into the statistics store.
type ConsumerHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewConsumerHandler(recorder Recorder, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{recorder: recorder, logger: logger}
}

func (h *ConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *ConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *ConsumerHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if h.handle(sess.Context(), msg) {
			sess.MarkMessage(msg, "")
		}
	}
	return nil
}

// handle reports whether msg may be marked as consumed. Broken payloads are
// skipped for good; store failures are left unmarked so Kafka redelivers
// them.
func (h *ConsumerHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var ev model.LookupEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.Error("malformed lookup event",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err)
		return true
	}

	switch ev.Kind {
	case model.LookupSearch, model.LookupReverse, model.LookupWeather:
	default:
		h.logger.Warn("unknown lookup kind", "kind", ev.Kind, "offset", msg.Offset)
		return true
	}

	if err := h.recorder.Record(ctx, ev); err != nil {
		h.logger.Error("failed to record lookup", "kind", ev.Kind, "key", ev.Key(), "error", err)
		return false
	}

	h.logger.Debug("lookup recorded", "kind", ev.Kind, "key", ev.Key())
	return true
}
