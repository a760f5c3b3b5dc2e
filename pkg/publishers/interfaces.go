package publishers

import "context"

// Publisher sends prediction events to a downstream sink (webhook, SQS, SNS, Pub/Sub).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}
