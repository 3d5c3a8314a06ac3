// Package core holds the case-packing upload pipeline, independent of any
// transport. The web server and the CLI both drive it through [Service].
//
// # Pipeline
//
// A run moves through fixed stages:
//
//  1. [ParseCSV] reads the header line and the data rows, skipping a BOM and
//     replacing invalid UTF-8.
//  2. [DetectMapping] proposes which columns hold the SKU, case barcode and
//     case quantity; the user may override it.
//  3. [ValidateRows] drops incomplete rows and rows whose quantity is not a
//     positive integer, keeping one message per dropped row.
//  4. [Chunk] splits the valid products into batches of [BatchSize].
//  5. [Service.Process] submits batches one after another and products one
//     after another, pausing with a [Pacer] after each product.
//  6. [Aggregator] folds everything into a [ProcessingResult] whose Errors
//     list is capped at [MaxReportedErrors].
//
// Fatal problems (no rows, incomplete mapping, no credential, no valid
// products) are returned as errors before any upstream call. Everything
// after that point is reported per row and never aborts the run.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Codes
// are grouped by family:
//
//   - AUTH001-AUTH004: credential and refresh-token problems
//   - CSV001-CSV005: unreadable, malformed or expired files
//   - MAP001-MAP005: column mappings and saved presets
//   - VAL001: no valid products
//   - API001-API004: upstream HTTP and GraphQL failures
//   - PROC001-PROC003: run limits and timeouts
//   - RATE001, REQ001, CFG001: request-level problems
package core
