package core

import "strings"

// Keyword lists for header auto-detection, checked in role priority order.
var (
	skuKeywords      = []string{"sku", "product"}
	barcodeKeywords  = []string{"barcode", "case_barcode"}
	quantityKeywords = []string{"quantity", "qty", "case_quantity"}
)

// DetectMapping proposes a FieldMapping from CSV headers.
//
// Headers are scanned left to right. Each header is classified into at most
// one role, trying SKU, then case barcode, then case quantity, by
// case-insensitive substring match. The first header classified into a role
// claims it; later candidates never overwrite it. Roles with no candidate
// stay empty for the user to fill in.
func DetectMapping(headers []string) FieldMapping {
	var m FieldMapping

	for _, header := range headers {
		lower := strings.ToLower(header)
		switch {
		case containsAny(lower, skuKeywords):
			if m.SKU == "" {
				m.SKU = header
			}
		case containsAny(lower, barcodeKeywords):
			if m.CaseBarcode == "" {
				m.CaseBarcode = header
			}
		case containsAny(lower, quantityKeywords):
			if m.CaseQuantity == "" {
				m.CaseQuantity = header
			}
		}
	}

	return m
}

// MappingUsesHeaders reports whether every bound column exists in headers.
// Unbound roles are ignored.
func MappingUsesHeaders(m FieldMapping, headers []string) bool {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for _, col := range []string{m.SKU, m.CaseBarcode, m.CaseQuantity} {
		if col != "" && !known[col] {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
