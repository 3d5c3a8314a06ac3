package core

// validation.go turns mapped CSV rows into ValidatedProducts.
//
// A row either yields a product or a single human-readable error string;
// rows that fail are dropped and never reach the batcher. Validation is pure:
// the same row and mapping always give the same product or the same message.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoValidProducts is returned when every row failed validation.
var ErrNoValidProducts = errors.New("no valid products to process")

// RowError is a validation failure for one data row.
type RowError struct {
	RowNumber int
	Message   string
}

func (e *RowError) Error() string {
	return e.Message
}

// ValidateRow validates data row i (0-based) against the mapping.
// Mapped columns absent from the row count as empty.
func ValidateRow(row RawRow, m FieldMapping, i int) (ValidatedProduct, error) {
	rowNumber := i + 2

	sku := strings.TrimSpace(row[m.SKU])
	barcode := strings.TrimSpace(row[m.CaseBarcode])
	qtyRaw := strings.TrimSpace(row[m.CaseQuantity])

	if sku == "" || barcode == "" || qtyRaw == "" {
		return ValidatedProduct{}, &RowError{
			RowNumber: rowNumber,
			Message: fmt.Sprintf("Row %d: Missing required fields (SKU: %s, Case Barcode: %s, Case Quantity: %s)",
				rowNumber, orEmpty(sku), orEmpty(barcode), orEmpty(qtyRaw)),
		}
	}

	qty, ok := ParseLeadingInt(qtyRaw)
	if !ok || qty <= 0 {
		return ValidatedProduct{}, &RowError{
			RowNumber: rowNumber,
			Message:   fmt.Sprintf("Row %d: Invalid case quantity \"%s\" (must be a positive number)", rowNumber, qtyRaw),
		}
	}

	return ValidatedProduct{
		SKU:          sku,
		CaseBarcode:  barcode,
		CaseQuantity: qty,
		RowNumber:    rowNumber,
	}, nil
}

// ValidateRows validates every row in order. It returns the products that
// passed and one message per dropped row, both in file order.
func ValidateRows(rows []RawRow, m FieldMapping) ([]ValidatedProduct, []string) {
	products := make([]ValidatedProduct, 0, len(rows))
	var errs []string

	for i, row := range rows {
		p, err := ValidateRow(row, m, i)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		products = append(products, p)
	}

	return products, errs
}

// ParseLeadingInt parses the base-10 integer prefix of s. Leading whitespace
// and a single sign are accepted and any suffix after the digits is ignored,
// so "10abc" is 10 and "5.9" is 5. It reports false when there are no digits
// or the value overflows int.
func ParseLeadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func orEmpty(s string) string {
	if s == "" {
		return "empty"
	}
	return s
}
