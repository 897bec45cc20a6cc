package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sdnyco/ichi/pkg/logger"
)

// LogTransport only logs; used when mail.driver is "log".
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, msg PingEmail) error {
	subject, _, err := Render(msg)
	if err != nil {
		return err
	}
	logger.Info("ping email (log transport)",
		zap.String("subject", subject),
		zap.String("place_url", msg.PlaceURL),
		zap.Int("recipients", len(msg.Recipients)))
	return nil
}
