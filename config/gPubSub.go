package config

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSubClient uses Application Default Credentials unless credJSON is set.
func NewPubSubClient(ctx context.Context, c AlertConfig) (*pubsub.Client, error) {
	if c.ProjectID == "" {
		return nil, errors.New("pubsub project id is required (PUBSUB_PROJECT_ID or GOOGLE_CLOUD_PROJECT)")
	}
	if c.CredentialsJSON != "" {
		return pubsub.NewClient(ctx, c.ProjectID, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	}
	return pubsub.NewClient(ctx, c.ProjectID)
}

func CreateTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}
