package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/casesync/internal/logging"
)

// Fatal request errors. They abort a run before any remote call is made.
var (
	ErrMissingData       = errors.New("missing required data or mapping")
	ErrIncompleteMapping = errors.New("incomplete field mapping")
	ErrMissingCredential = errors.New("no access token provided")
)

// recordTimeout bounds how long a finished run may spend in the recorder.
const recordTimeout = 5 * time.Second

// ProductUpdater applies one product's case definition upstream.
type ProductUpdater interface {
	UpdateProductCases(ctx context.Context, cred Credential, p ValidatedProduct) error
}

// RunRecorder persists a summary of every finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Observer receives processing events, typically for metrics.
type Observer interface {
	RowProcessed(success bool, elapsed time.Duration)
	RowsDropped(n int)
	RunFinished(status RunStatus, elapsed time.Duration)
}

// Option configures a Service.
type Option func(*Service)

// WithPacer sets the throttle applied after every product.
func WithPacer(p Pacer) Option {
	return func(s *Service) { s.pacer = p }
}

// WithBatchSize overrides BatchSize.
func WithBatchSize(n int) Option {
	return func(s *Service) { s.batchSize = n }
}

// WithMaxErrors overrides MaxReportedErrors.
func WithMaxErrors(n int) Option {
	return func(s *Service) { s.maxErrors = n }
}

// WithLimiter makes every run hold a limiter slot while it talks upstream.
func WithLimiter(l *ProcessLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithRecorder persists run summaries.
func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithObserver attaches a processing observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithRunTimeout bounds the wall time of a single run. Rows still pending when
// it fires fail with a deadline error.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) { s.runTimeout = d }
}

// Service runs the validate, batch, update and aggregate pipeline.
// It keeps no per-request state, so one Service serves concurrent requests.
type Service struct {
	updater    ProductUpdater
	pacer      Pacer
	batchSize  int
	maxErrors  int
	runTimeout time.Duration
	limiter    *ProcessLimiter
	recorder   RunRecorder
	observer   Observer
}

// NewService returns a Service that sends updates through updater.
func NewService(updater ProductUpdater, opts ...Option) *Service {
	s := &Service{
		updater:   updater,
		pacer:     FixedDelay(DefaultRowDelay),
		batchSize: BatchSize,
		maxErrors: MaxReportedErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pacer == nil {
		s.pacer = NoDelay{}
	}
	return s
}

// Limiter returns the run limiter, or nil when runs are unlimited.
func (s *Service) Limiter() *ProcessLimiter {
	return s.limiter
}

// ProcessRequest is one invocation of the pipeline.
type ProcessRequest struct {
	Rows       []RawRow
	Mapping    FieldMapping
	Credential Credential
	FileName   string
}

// Process validates the rows, submits the valid products in sequential
// batches and returns the aggregated result.
//
// ErrMissingData, ErrIncompleteMapping, ErrMissingCredential,
// ErrNoValidProducts and ErrTooManyRuns are returned without a result and
// without any upstream call. The last two are still recorded as rejected
// runs. Failures of individual products, including cancellation of ctx, only
// show up in the result.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessingResult, error) {
	if req.Rows == nil {
		return nil, ErrMissingData
	}
	if err := req.Mapping.Validate(); err != nil {
		return nil, err
	}
	if req.Credential.AccessToken == "" {
		return nil, ErrMissingCredential
	}

	started := time.Now()
	rec := RunRecord{
		ID:        uuid.NewString(),
		FileName:  req.FileName,
		AccountID: req.Credential.AccountID,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		StartedAt: started,
	}
	ctx = logging.WithFields(ctx, "run_id", rec.ID)
	log := logging.FromContext(ctx)

	products, validationErrors := ValidateRows(req.Rows, req.Mapping)
	if len(validationErrors) > 0 {
		s.observeDropped(len(validationErrors))
		log.Info("rows dropped by validation", "dropped", len(validationErrors), "valid", len(products))
	}
	if len(products) == 0 {
		rec.Status = RunRejected
		rec.Error = ErrNoValidProducts.Error()
		rec.ErrorCount = len(validationErrors)
		rec.Errors = firstN(validationErrors, s.maxErrors)
		s.finish(ctx, log, rec)
		return nil, ErrNoValidProducts
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			log.Warn("run rejected by limiter", "error", err)
			rec.Status = RunRejected
			rec.Error = err.Error()
			rec.ErrorCount = len(validationErrors)
			rec.Errors = firstN(validationErrors, s.maxErrors)
			s.finish(ctx, log, rec)
			return nil, err
		}
		defer s.limiter.Release()
	}

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	agg := NewAggregator(validationErrors, s.maxErrors)
	batches := Chunk(products, s.batchSize)
	log.Info("processing started", "products", len(products), "batches", len(batches))

	for i, batch := range batches {
		res, err := s.processBatch(runCtx, req.Credential, batch)
		if err != nil {
			log.Error("batch failed", "batch", i+1, "size", len(batch), "error", err)
			agg.AddBatchFailure(len(batch), err)
			continue
		}
		agg.AddBatch(res)
		log.Debug("batch done",
			"batch", i+1,
			"batch_success", res.SuccessCount,
			"batch_errors", res.ErrorCount,
			"success", agg.SuccessCount(),
			"errors", agg.ErrorCount(),
		)
	}

	result := agg.Result(len(products))

	rec.Status = RunCompleted
	rec.SuccessCount = result.SuccessCount
	rec.ErrorCount = result.ErrorCount
	rec.TotalProcessed = result.TotalProcessed
	rec.Errors = result.Errors
	s.finish(ctx, log, rec)

	return result, nil
}

// rowAttempt is one upstream attempt awaiting observation.
type rowAttempt struct {
	success bool
	elapsed time.Duration
}

// processBatch submits each product in order. A panic from the updater is
// turned into an error so the caller can fail the whole batch.
//
// Observations are held until the batch settles, so a failed batch reports
// every attempted row as a failure, matching the result.
func (s *Service) processBatch(ctx context.Context, cred Credential, batch Batch) (res BatchResult, err error) {
	attempts := make([]rowAttempt, 0, len(batch))
	var (
		inFlight bool
		started  time.Time
	)

	defer func() {
		r := recover()
		if r == nil {
			s.observeRows(attempts)
			return
		}
		if inFlight {
			attempts = append(attempts, rowAttempt{elapsed: time.Since(started)})
		}
		for i := range attempts {
			attempts[i].success = false
		}
		s.observeRows(attempts)

		res = BatchResult{}
		if e, ok := r.(error); ok {
			err = e
			return
		}
		err = fmt.Errorf("%v", r)
	}()

	for _, p := range batch {
		started = time.Now()
		inFlight = true
		o := s.processProduct(ctx, cred, p)
		inFlight = false

		attempts = append(attempts, rowAttempt{success: o.Success, elapsed: time.Since(started)})
		res.add(o)
		// Cancellation is reported by the next row, not by the pacer.
		_ = s.pacer.Wait(ctx)
	}
	return res, nil
}

// processProduct makes exactly one attempt for p.
func (s *Service) processProduct(ctx context.Context, cred Credential, p ValidatedProduct) Outcome {
	err := ctx.Err()
	if err == nil {
		err = s.updater.UpdateProductCases(ctx, cred, p)
	}

	if err != nil {
		return Outcome{
			RowNumber: p.RowNumber,
			SKU:       p.SKU,
			Message:   fmt.Sprintf("Row %d (SKU: %s): %s", p.RowNumber, p.SKU, err.Error()),
		}
	}
	return Outcome{RowNumber: p.RowNumber, SKU: p.SKU, Success: true}
}

func (s *Service) observeRows(attempts []rowAttempt) {
	if s.observer == nil {
		return
	}
	for _, a := range attempts {
		s.observer.RowProcessed(a.success, a.elapsed)
	}
}

func (s *Service) observeDropped(n int) {
	if s.observer != nil {
		s.observer.RowsDropped(n)
	}
}

// finish logs, observes and records a run. Recording failures are logged only.
func (s *Service) finish(ctx context.Context, log *slog.Logger, rec RunRecord) {
	rec.Duration = time.Since(rec.StartedAt)

	log.Info("processing finished",
		"status", rec.Status,
		"success", rec.SuccessCount,
		"errors", rec.ErrorCount,
		"total", rec.TotalProcessed,
		"duration", rec.Duration,
	)
	if s.observer != nil {
		s.observer.RunFinished(rec.Status, rec.Duration)
	}
	if s.recorder == nil {
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordRun(recCtx, rec); err != nil {
		log.Error("failed to record run", "error", err)
	}
}

func firstN(msgs []string, n int) []string {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[:n]
}
