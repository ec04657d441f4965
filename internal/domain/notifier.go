package domain

import "context"

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// NopNotifier discards every message.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }
