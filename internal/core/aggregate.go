package core

import "fmt"

// BatchResult holds the per-row outcomes of one batch.
type BatchResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       []string
}

// add records one outcome.
func (b *BatchResult) add(o Outcome) {
	if o.Success {
		b.SuccessCount++
		return
	}
	b.ErrorCount++
	b.Errors = append(b.Errors, o.Message)
}

// Aggregator folds validation errors and batch results into running totals.
// It is owned by a single run and is not safe for concurrent use.
type Aggregator struct {
	successCount int
	errorCount   int
	errors       []string
	maxErrors    int
}

// NewAggregator seeds the totals with the validation errors, which count
// toward ErrorCount before any remote call is made.
func NewAggregator(validationErrors []string, maxErrors int) *Aggregator {
	if maxErrors <= 0 {
		maxErrors = MaxReportedErrors
	}
	errs := make([]string, len(validationErrors))
	copy(errs, validationErrors)
	return &Aggregator{
		errorCount: len(validationErrors),
		errors:     errs,
		maxErrors:  maxErrors,
	}
}

// AddBatch folds one batch's results into the totals.
func (a *Aggregator) AddBatch(r BatchResult) {
	a.successCount += r.SuccessCount
	a.errorCount += r.ErrorCount
	a.errors = append(a.errors, r.Errors...)
}

// AddBatchFailure counts every product of a failed batch as an error and
// records a single message for the batch.
func (a *Aggregator) AddBatchFailure(size int, reason any) {
	a.errorCount += size
	a.errors = append(a.errors, fmt.Sprintf("Batch error: %v", reason))
}

// SuccessCount returns the running success total.
func (a *Aggregator) SuccessCount() int { return a.successCount }

// ErrorCount returns the running error total, including validation errors.
func (a *Aggregator) ErrorCount() int { return a.errorCount }

// Result returns the final result. Errors holds the first maxErrors messages
// in overall order; ErrorCount stays the true total.
func (a *Aggregator) Result(totalProcessed int) *ProcessingResult {
	n := min(len(a.errors), a.maxErrors)
	errs := make([]string, n)
	copy(errs, a.errors[:n])

	return &ProcessingResult{
		SuccessCount:   a.successCount,
		ErrorCount:     a.errorCount,
		TotalProcessed: totalProcessed,
		Errors:         errs,
	}
}
