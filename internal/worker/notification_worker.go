package worker

import (
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/service"
)

// StartNotificationWorker registers notification handlers and returns a
// func that closes the event stream on shutdown.
func StartNotificationWorker(notificationService *service.NotificationService, stream io.Closer, logger *zap.Logger) func() {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	return func() {
		if stream == nil {
			return
		}
		if err := stream.Close(); err != nil && logger != nil {
			logger.Warn("close event stream failed", zap.Error(err))
		}
	}
}
