package core

import (
	"fmt"
	"strings"
	"time"
)

// BatchSize is the number of products submitted per sequential batch.
const BatchSize = 10

// MaxReportedErrors caps the error messages returned in a ProcessingResult.
const MaxReportedErrors = 10

// RawRow is one CSV data line keyed by header name.
type RawRow map[string]string

// FieldMapping binds the three semantic roles to CSV column names.
type FieldMapping struct {
	SKU          string `json:"sku"`
	CaseBarcode  string `json:"caseBarcode"`
	CaseQuantity string `json:"caseQuantity"`
}

// Complete reports whether every role is bound to a column.
func (m FieldMapping) Complete() bool {
	return m.SKU != "" && m.CaseBarcode != "" && m.CaseQuantity != ""
}

// Validate returns ErrIncompleteMapping naming each unbound role.
func (m FieldMapping) Validate() error {
	var missing []string
	if m.SKU == "" {
		missing = append(missing, "SKU")
	}
	if m.CaseBarcode == "" {
		missing = append(missing, "Case Barcode")
	}
	if m.CaseQuantity == "" {
		missing = append(missing, "Case Quantity")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteMapping, strings.Join(missing, ", "))
	}
	return nil
}

// ValidatedProduct is a row that passed validation and is ready for upload.
type ValidatedProduct struct {
	SKU          string `json:"sku"`
	CaseBarcode  string `json:"case_barcode"`
	CaseQuantity int    `json:"case_quantity"`
	RowNumber    int    `json:"row_number"` // data index + 2 (header line, 1-based)
}

// Batch is a contiguous group of at most BatchSize products.
type Batch []ValidatedProduct

// Outcome is the terminal state of one product's upload attempt.
type Outcome struct {
	RowNumber int
	SKU       string
	Success   bool
	Message   string // set when Success is false
}

// ProcessingResult is the externally visible result of one processing request.
type ProcessingResult struct {
	SuccessCount   int      `json:"successCount"`
	ErrorCount     int      `json:"errorCount"`
	TotalProcessed int      `json:"totalProcessed"`
	Errors         []string `json:"errors"`
}

// Credential authenticates calls to the product API. It is passed explicitly
// with every request; the core never caches or refreshes it.
type Credential struct {
	AccessToken string
	AccountID   string // optional, not sent upstream
}

// RunStatus is the terminal state of a processing run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunRejected  RunStatus = "rejected" // fatal request-level error, nothing uploaded
)

// RunRecord summarizes a finished processing run for the history store.
type RunRecord struct {
	ID             string
	FileName       string
	AccountID      string
	Status         RunStatus
	Error          string
	SuccessCount   int
	ErrorCount     int
	TotalProcessed int
	Errors         []string
	IPAddress      string
	UserAgent      string
	StartedAt      time.Time
	Duration       time.Duration
}
