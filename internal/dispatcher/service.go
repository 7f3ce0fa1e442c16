// Package dispatcher delivers pending outbox records to the in-process
// event publisher.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db/models"
	"github.com/angelmondragon/orderflow/pkg/enums"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/outbox/registry"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultMaxRetries   = 3
)

type outboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]models.OutboxRecord, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	IncrementRetry(ctx context.Context, id uuid.UUID, maxRetries int) (bool, error)
	RecordError(ctx context.Context, id uuid.UUID, message string) error
}

type deadLetterStore interface {
	Insert(ctx context.Context, entry *models.OutboxDeadLetter) error
}

type eventResolver interface {
	Resolve(record models.OutboxRecord) (*outbox.Event, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event *outbox.Event) error
}

type ServiceParams struct {
	Config      config.OutboxConfig
	Logger      *logger.Logger
	Store       outboxStore
	DeadLetters deadLetterStore
	Registry    eventResolver
	Publisher   eventPublisher
	Metrics     *metrics.OutboxMetrics
}

// Service polls the outbox on a fixed interval and publishes each pending
// record, one at a time, oldest first.
type Service struct {
	logg         *logger.Logger
	store        outboxStore
	deadLetters  deadLetterStore
	registry     eventResolver
	publisher    eventPublisher
	metrics      *metrics.OutboxMetrics
	pollInterval time.Duration
	maxRetries   int
	batchSize    int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Store == nil {
		return nil, errors.New("outbox store is required")
	}
	if params.DeadLetters == nil {
		return nil, errors.New("dead letter store is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	interval := params.Config.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxRetries := params.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Service{
		logg:         params.Logger,
		store:        params.Store,
		deadLetters:  params.DeadLetters,
		registry:     params.Registry,
		publisher:    params.Publisher,
		metrics:      params.Metrics,
		pollInterval: interval,
		maxRetries:   maxRetries,
		batchSize:    params.Config.BatchSize,
	}, nil
}

// CycleResult counts what one poll cycle did.
type CycleResult struct {
	Fetched      int
	Processed    int
	Failed       int
	Skipped      int
	DeadLettered int
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeDeadLettered
)

// Run loops until ctx is canceled. Cancellation is honored between records
// and between cycles; a record already being handled runs to completion.
// A failing cycle is logged and the loop re-arms after the interval.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "component", "outbox-dispatcher")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"poll_interval": s.pollInterval.String(),
		"max_retries":   s.maxRetries,
	}), "outbox dispatcher started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox dispatcher stopped")
			return nil
		case <-timer.C:
		}

		s.safeCycle(ctx)
		timer.Reset(s.pollInterval)
	}
}

func (s *Service) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(s.logg.WithField(ctx, "panic_stack", string(debug.Stack())), "outbox dispatch cycle panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logg.Error(ctx, "outbox dispatch cycle failed", err)
		return
	}
	if result.Fetched > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"fetched":       result.Fetched,
			"processed":     result.Processed,
			"failed":        result.Failed,
			"skipped":       result.Skipped,
			"dead_lettered": result.DeadLettered,
		}), "outbox dispatch cycle finished")
	}
}

// RunOnce dispatches the current backlog. Only a failure to read the
// backlog is returned; per-record faults are recorded on the record.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveCycle(time.Since(started)) }()

	var result CycleResult
	records, err := s.store.FetchPending(context.WithoutCancel(ctx), s.batchSize)
	if err != nil {
		return result, fmt.Errorf("fetch pending outbox records: %w", err)
	}
	result.Fetched = len(records)

	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		switch s.dispatch(context.WithoutCancel(ctx), record) {
		case outcomeProcessed:
			result.Processed++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		case outcomeDeadLettered:
			result.Failed++
			result.DeadLettered++
		}
	}
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, record models.OutboxRecord) outcome {
	fields := map[string]any{
		"outbox_id":     record.ID.String(),
		"event_type":    record.EventType,
		"aggregate_id":  record.AggregateID,
		"attempt_count": record.AttemptCount,
	}
	ctx = s.logg.WithFields(ctx, fields)
	eventType := record.EventType.String()

	event, err := s.registry.Resolve(record)
	if err != nil {
		// Unknown tags and undecodable payloads never heal on retry: record
		// the error and leave the row pending without spending an attempt.
		reason := "outbox record cannot be decoded"
		if errors.Is(err, registry.ErrUnresolvedEventType) {
			reason = "outbox record has an unresolved event type"
		}
		s.recordError(ctx, record, err)
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), reason)
		s.metrics.IncDispatch(eventType, metrics.OutcomeSkipped)
		return outcomeSkipped
	}
	ctx = s.logg.WithField(ctx, "event_id", event.ID.String())

	if err := s.publish(ctx, event); err != nil {
		return s.fail(ctx, record, event, err)
	}

	if err := s.store.MarkProcessed(ctx, record.ID); err != nil {
		// The record stays pending and is published again next cycle.
		s.logg.Error(ctx, "mark outbox record processed", err)
		s.metrics.IncDispatch(eventType, metrics.OutcomeFailed)
		return outcomeFailed
	}
	s.logg.Info(ctx, "outbox event dispatched")
	s.metrics.IncDispatch(eventType, metrics.OutcomeProcessed)
	return outcomeProcessed
}

// publish converts a subscriber panic into an error.
func (s *Service) publish(ctx context.Context, event *outbox.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return s.publisher.Publish(ctx, event)
}

func (s *Service) fail(ctx context.Context, record models.OutboxRecord, event *outbox.Event, cause error) outcome {
	eventType := record.EventType.String()
	s.recordError(ctx, record, cause)

	deadLettered, err := s.store.IncrementRetry(ctx, record.ID, s.maxRetries)
	if err != nil {
		s.logg.Error(ctx, "increment outbox retry", err)
		s.metrics.IncDispatch(eventType, metrics.OutcomeFailed)
		return outcomeFailed
	}
	if !deadLettered {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"error":   cause.Error(),
			"attempt": record.AttemptCount + 1,
		}), "outbox dispatch failed, will retry")
		s.metrics.IncDispatch(eventType, metrics.OutcomeFailed)
		return outcomeFailed
	}

	message := outbox.TruncateError(cause.Error())
	eventID := record.ID
	if event != nil {
		eventID = event.ID
	}
	entry := &models.OutboxDeadLetter{
		EventID:       eventID,
		EventType:     record.EventType,
		AggregateType: record.AggregateType,
		AggregateID:   record.AggregateID,
		Payload:       record.Payload,
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &message,
		AttemptCount:  s.maxRetries,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.deadLetters.Insert(ctx, entry); err != nil {
		s.logg.Error(ctx, "insert outbox dead letter", err)
	}
	s.logg.Error(s.logg.WithField(ctx, "error_reason", entry.ErrorReason), "outbox record dead-lettered", cause)
	s.metrics.IncDispatch(eventType, metrics.OutcomeDeadLetter)
	s.metrics.IncDeadLetter(eventType)
	return outcomeDeadLettered
}

func (s *Service) recordError(ctx context.Context, record models.OutboxRecord, cause error) {
	if err := s.store.RecordError(ctx, record.ID, cause.Error()); err != nil {
		s.logg.Error(ctx, "record outbox error", err)
	}
}
