// Package orchestrator owns the lifecycle of script submissions.
//
// Each Submit moves the Store to Pending synchronously, snapshots the source
// text into an api.ExecuteRequest and performs the remote call on its own
// goroutine. When the call returns, Reduce turns the response (or error) into
// exactly one Succeeded or Failed outcome, which the Store applies according
// to its Policy.
//
//	Idle ──submit──▶ Pending ──success──▶ Succeeded
//	                 Pending ──failure──▶ Failed
//	Pending / Succeeded / Failed ──submit──▶ Pending
//
// There is no retry and no cancellation of superseded calls; under
// PolicySequenceGated their results are simply discarded.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/script-playground/internal/api"
	"github.com/sakif/script-playground/internal/apperror"
)

// Executor performs one remote execution. Implementations return a typed
// *apperror.AppError for transport, application and decode failures.
type Executor interface {
	Execute(ctx context.Context, req api.ExecuteRequest) (*api.ExecuteResponse, error)
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	exec    Executor
	store   *Store
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer

	// base parents every call; Shutdown cancels it.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

// WithTimeout fails a call with the message "timeout" when it has not
// completed within d. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer records one span per submission. The span context reaches the
// Executor, so an instrumented HTTP client joins the same trace.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

func New(exec Executor, store *Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		exec:   exec,
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("script-playground/orchestrator"),
	}
	o.base, o.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Store() *Store { return o.store }

// Submit starts executing text and returns its submission number. The store
// is already Pending when Submit returns; the outcome arrives later.
func (o *Orchestrator) Submit(text string) uint64 {
	seq := o.store.Begin()
	req := api.ExecuteRequest{Script: text}

	o.logger.Debug("submission started",
		slog.Uint64("seq", seq),
		slog.Int("scriptBytes", len(req.Script)),
	)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		start := time.Now()
		outcome := o.execute(seq, req)

		applied := o.store.Resolve(seq, outcome)
		o.logger.Info("submission resolved",
			slog.Uint64("seq", seq),
			slog.String("outcome", outcome.Kind.String()),
			slog.Bool("applied", applied),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	return seq
}

// Wait blocks until every submitted call has been resolved.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown cancels every in-flight call and waits for them to resolve, or
// for ctx to end, whichever comes first. Executors that ignore cancellation
// are abandoned when ctx ends. Submissions made after Shutdown fail at once.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight submissions: %w", ctx.Err())
	}
}

func (o *Orchestrator) execute(seq uint64, req api.ExecuteRequest) (outcome Outcome) {
	ctx, span := o.tracer.Start(o.base, "orchestrator.submit",
		trace.WithAttributes(
			attribute.Int64("playground.seq", int64(seq)),
			attribute.Int("playground.script_bytes", len(req.Script)),
		))
	defer func() {
		span.SetAttributes(attribute.String("playground.outcome", outcome.Kind.String()))
		if outcome.Kind == KindFailed {
			span.SetStatus(codes.Error, outcome.Message)
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("executor panicked", slog.Uint64("seq", seq), slog.Any("panic", r))
			outcome = Failed(seq, apperror.GenericExecutionMessage)
		}
	}()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	resp, err := o.exec.Execute(ctx, req)
	if err != nil && o.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("executing seq %d: %w", seq, apperror.Timeout())
	}
	if err != nil {
		o.logger.Warn("submission failed",
			slog.Uint64("seq", seq),
			slog.String("error", err.Error()),
		)
	}
	return Reduce(seq, resp, err)
}

// Reduce maps the result of one remote call onto a terminal Outcome. It
// never fails: every error becomes Failed with a user-facing message.
func Reduce(seq uint64, resp *api.ExecuteResponse, err error) Outcome {
	if err != nil {
		return Failed(seq, apperror.Message(err))
	}
	if resp == nil {
		return Failed(seq, apperror.GenericExecutionMessage)
	}
	return Succeeded(seq, resp.Stdout, resp.Result)
}
