package httpclient

import (
	"context"
	"time"

	apperrors "github.com/nsouzarj/craweb/pkg/errors"
)

// Notification is a transient, auto-dismissing message for the user.
type Notification struct {
	Kind     apperrors.Kind
	Message  string
	Duration time.Duration
}

// Notifier shows notifications. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}
