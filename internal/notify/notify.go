// Package notify delivers advisory notifications and suppresses repeats.
package notify

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/sadopc/worktime/internal/metrics"
)

// Sink delivers one notification.
type Sink interface {
	Notify(ctx context.Context, category, title, body string) error
}

// LogSink writes notifications to the log.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (s *LogSink) Notify(_ context.Context, category, title, body string) error {
	s.logger.Warn().Str("category", category).Str("title", title).Msg(body)
	metrics.Notifications.WithLabelValues("log", "ok").Inc()
	return nil
}

// RunFunc executes a command.
type RunFunc func(ctx context.Context, name string, args ...string) error

// DesktopSink shows a desktop notification through notify-send.
type DesktopSink struct {
	AppName string
	Timeout time.Duration
	Run     RunFunc
}

func NewDesktopSink() *DesktopSink {
	return &DesktopSink{
		AppName: "worktime",
		Timeout: 10 * time.Second,
		Run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

func (s *DesktopSink) Notify(ctx context.Context, category, title, body string) error {
	args := []string{
		"--app-name", s.AppName,
		"--category", category,
		"--expire-time", strconv.FormatInt(s.Timeout.Milliseconds(), 10),
		title, body,
	}
	err := s.Run(ctx, "notify-send", args...)
	metrics.Notifications.WithLabelValues("desktop", metrics.Result(err)).Inc()
	return err
}

// PartialError reports that some sinks of a Multi failed while at least one
// delivered the notification.
type PartialError struct {
	Delivered int
	Err       error
}

func (e *PartialError) Error() string {
	return "partially delivered (" + strconv.Itoa(e.Delivered) + " ok): " + e.Err.Error()
}

func (e *PartialError) Unwrap() error { return e.Err }

// Multi fans a notification out to every sink and joins their errors. When
// only some sinks fail the joined error is wrapped in a *PartialError.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, category, title, body string) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, category, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if delivered := len(m) - len(errs); delivered > 0 {
		return &PartialError{Delivered: delivered, Err: errors.Join(errs...)}
	}
	return errors.Join(errs...)
}

// delivered reports whether at least one sink received the notification.
func delivered(err error) bool {
	var partial *PartialError
	return err == nil || errors.As(err, &partial)
}

// Dedup forwards a notification only if the same category and title were not
// forwarded within the window. A delivery counts once any sink received it.
type Dedup struct {
	next  Sink
	cache *expirable.LRU[string, struct{}]
}

func NewDedup(next Sink, window time.Duration, size int) *Dedup {
	if size <= 0 {
		size = 64
	}
	return &Dedup{
		next:  next,
		cache: expirable.NewLRU[string, struct{}](size, nil, window),
	}
}

func (d *Dedup) Notify(ctx context.Context, category, title, body string) error {
	key := dedupKey(category, title)
	if d.cache.Contains(key) {
		metrics.Notifications.WithLabelValues("dedup", "suppressed").Inc()
		return nil
	}
	err := d.next.Notify(ctx, category, title, body)
	if delivered(err) {
		d.cache.Add(key, struct{}{})
	}
	return err
}

func dedupKey(category, title string) string {
	return category + "\x00" + title
}
