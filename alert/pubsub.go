package alert

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"bitbucket.org/mmdatafocus/menu_recon/appctx"
	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

const messageKind = "menu_recon_summary"

type PubSubSink struct {
	topic *pubsub.Topic
}

func NewPubSubSink(topic *pubsub.Topic) *PubSubSink {
	return &PubSubSink{topic: topic}
}

// Send publishes the summary as the message body and waits for the server ack.
func (s *PubSubSink) Send(ctx context.Context, message string) error {
	attrs := map[string]string{
		"kind":    messageKind,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}
	if runId, ok := appctx.GetRunId(ctx); ok {
		attrs["run_id"] = runId
	}

	res := s.topic.Publish(ctx, &pubsub.Message{Data: []byte(message), Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("%w: publish to %s: %w", utils.ErrorAlert, s.topic.ID(), err)
	}
	return nil
}

// Close flushes pending publishes.
func (s *PubSubSink) Close() {
	s.topic.Stop()
}
