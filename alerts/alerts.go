package alerts

import (
	"log/slog"

	"github.com/gregdel/pushover"

	"github.com/galleryscreen/mosaic/config"
)

// Notifier pushes operator alerts for conditions a passerby can't fix:
// the gallery never answering, or a pool that stays empty. It is a no-op
// when Pushover credentials aren't configured.
type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

func NewNotifier(cfg config.PushoverConfig) *Notifier {
	n := &Notifier{}
	if cfg.Token == "" || cfg.Recipient == "" {
		return n
	}
	n.app = pushover.New(cfg.Token)
	n.recipient = pushover.NewRecipient(cfg.Recipient)
	return n
}

func (n *Notifier) Send(title, message string) {
	if n.app == nil {
		return
	}
	msg := &pushover.Message{
		Title:   title,
		Message: message,
	}
	if _, err := n.app.SendMessage(msg, n.recipient); err != nil {
		slog.Error("Failed to send operator alert",
			slog.String("stack", err.Error()),
			slog.String("title", title),
		)
	}
}
