package logging

import (
	"context"
)

type contextKey string

const (
	MessageIDKey   contextKey = "message_id"
	RecipientKey   contextKey = "recipient"
	ChannelKey     contextKey = "channel"
	ServiceNameKey contextKey = "service_name"
)

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

func WithRecipient(ctx context.Context, recipient string) context.Context {
	return context.WithValue(ctx, RecipientKey, recipient)
}

func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, ChannelKey, channel)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetMessageID(ctx context.Context) string {
	if messageID, ok := ctx.Value(MessageIDKey).(string); ok {
		return messageID
	}
	return ""
}

func GetRecipient(ctx context.Context) string {
	if recipient, ok := ctx.Value(RecipientKey).(string); ok {
		return recipient
	}
	return ""
}

func GetChannel(ctx context.Context) string {
	if channel, ok := ctx.Value(ChannelKey).(string); ok {
		return channel
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

// GetLogFields returns the enrichment fields carried by the context as a
// flat key/value list suitable for the sugared logger.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if messageID := GetMessageID(ctx); messageID != "" {
		fields = append(fields, string(MessageIDKey), messageID)
	}
	if recipient := GetRecipient(ctx); recipient != "" {
		fields = append(fields, string(RecipientKey), recipient)
	}
	if channel := GetChannel(ctx); channel != "" {
		fields = append(fields, string(ChannelKey), channel)
	}
	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, string(ServiceNameKey), serviceName)
	}

	return fields
}
