package deadletter

import (
	"context"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/notifier"
)

// SlackChannel implements Channel for Slack, wrapping the existing
// notifier.SlackNotifier from the infrastructure layer.
type SlackChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewSlackChannel creates a new Slack channel. If config.Enabled is false,
// a NoOpNotifier is used so the Channel contract is always satisfiable
// without nil checks.
func NewSlackChannel(config notifier.SlackConfig) *SlackChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewSlackNotifier(config)
	} else {
		n = notifier.NewNoOpNotifier()
	}

	return &SlackChannel{notifier: n, enabled: config.Enabled}
}

func (c *SlackChannel) Name() string {
	return "slack"
}

func (c *SlackChannel) IsEnabled() bool {
	return c.enabled
}

func (c *SlackChannel) Send(ctx context.Context, dl *entity.DeadLetter) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if dl == nil || dl.ID == "" {
		return ErrInvalidDeadLetter
	}
	return c.notifier.NotifyDeadLetter(ctx, dl)
}
