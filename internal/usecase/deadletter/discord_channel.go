package deadletter

import (
	"context"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/notifier"
)

// DiscordChannel implements Channel for Discord, wrapping the existing
// notifier.DiscordNotifier from the infrastructure layer.
type DiscordChannel struct {
	notifier notifier.Notifier
	enabled  bool
}

// NewDiscordChannel creates a new Discord channel. If config.Enabled is
// false, a NoOpNotifier is used so the Channel contract is always
// satisfiable without nil checks.
func NewDiscordChannel(config notifier.DiscordConfig) *DiscordChannel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewDiscordNotifier(config)
	} else {
		n = notifier.NewNoOpNotifier()
	}

	return &DiscordChannel{notifier: n, enabled: config.Enabled}
}

func (c *DiscordChannel) Name() string {
	return "discord"
}

func (c *DiscordChannel) IsEnabled() bool {
	return c.enabled
}

func (c *DiscordChannel) Send(ctx context.Context, dl *entity.DeadLetter) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if dl == nil || dl.ID == "" {
		return ErrInvalidDeadLetter
	}
	return c.notifier.NotifyDeadLetter(ctx, dl)
}
