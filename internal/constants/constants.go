package constants

import "time"

// Queue topology. Queue names are fixed by the wire contract with the
// ingestion API; the per-channel queues are derived from the drain type.
const (
	QueueNotifications = "notifications"
	QueueSMS           = "notifications.sms"
	QueueEmail         = "notifications.email"
	QueueWeb           = "notifications.web"

	DeadLetterExchange = "notifications.dlx"
	DeadLetterQueue    = "notifications.dead"
)

const (
	PublishTimeout  = 10 * time.Second
	ConfirmTimeout  = 10 * time.Second
	ShutdownTimeout = 15 * time.Second

	DefaultPrefetch = 8

	DefaultProviderTimeout = 15 * time.Second
)
