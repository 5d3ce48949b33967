package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/alexanderramin/timekeeper/internal/service")

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes service use-case events to the provided
// writer. Successful calls log at info, failures at warn for expected
// domain errors and error otherwise.
func NewLogUseCaseObserver(w io.Writer, level slog.Level) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		code := apperr.CodeOf(event.Err)
		attrs = append(attrs, "code", string(code), "error", event.Err.Error())
		if code == apperr.CodeUnknown || code == apperr.CodeInternal {
			o.logger.ErrorContext(ctx, "service_use_case", attrs...)
			return
		}
		o.logger.WarnContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "service_use_case", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

// useCase is one in-flight service call: a span plus the observer event
// emitted when it ends.
type useCase struct {
	observer  UseCaseObserver
	name      string
	startedAt time.Time
	fields    map[string]any
	span      trace.Span
}

func startUseCase(ctx context.Context, observer UseCaseObserver, name string, fields map[string]any) (context.Context, *useCase) {
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			attrs = append(attrs, attribute.String(k, s))
		}
	}
	ctx, span := tracer.Start(ctx, "timekeeper."+name, trace.WithAttributes(attrs...))
	return ctx, &useCase{
		observer:  observer,
		name:      name,
		startedAt: time.Now(),
		fields:    fields,
		span:      span,
	}
}

func (u *useCase) set(key string, value any) {
	u.fields[key] = value
}

func (u *useCase) end(ctx context.Context, err error) {
	if err != nil {
		u.span.RecordError(err)
		u.span.SetStatus(codes.Error, string(apperr.CodeOf(err)))
	}
	u.span.End()
	u.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      u.name,
		StartedAt: u.startedAt,
		Duration:  time.Since(u.startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    u.fields,
	})
}
