package worker

import (
	"github.com/spec-kit/ai-secretary/internal/events"
	"github.com/spec-kit/ai-secretary/internal/service"
)

// StartEventWorkers registers the event subscribers that run after intake:
// automatic ticket creation on classification, then notifications.
func StartEventWorkers(dispatcher events.Dispatcher, integration *service.TicketIntegration, notifications *service.NotificationService) {
	if integration != nil && dispatcher != nil {
		integration.RegisterHandlers(dispatcher)
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
}
