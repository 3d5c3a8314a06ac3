package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	input := "SKU,Case Barcode,Case Quantity\nA1,B1,5\n\n\"A,2\",B2,\"3\"\n"

	got, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	wantHeaders := []string{"SKU", "Case Barcode", "Case Quantity"}
	if !reflect.DeepEqual(got.Headers, wantHeaders) {
		t.Errorf("Headers = %q, want %q", got.Headers, wantHeaders)
	}
	wantRows := []RawRow{
		{"SKU": "A1", "Case Barcode": "B1", "Case Quantity": "5"},
		{"SKU": "A,2", "Case Barcode": "B2", "Case Quantity": "3"},
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("Rows = %v, want %v", got.Rows, wantRows)
	}
	if got.Bytes != int64(len(input)) {
		t.Errorf("Bytes = %d, want %d", got.Bytes, len(input))
	}
}

func TestParseCSV_EmptyInput(t *testing.T) {
	got, err := ParseCSV(strings.NewReader(""), ParseOptions{})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(got.Headers) != 0 || len(got.Rows) != 0 {
		t.Errorf("ParseCSV(\"\") = %+v, want empty", got)
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"header line", "sku,barcode,qty\n"},
		{"header and blank lines", "sku,barcode,qty\n\n\n"},
		{"header without newline", "sku,barcode,qty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.input), ParseOptions{})
			if err != nil {
				t.Fatalf("ParseCSV() error = %v", err)
			}
			if got.Headers == nil || len(got.Headers) != 0 {
				t.Errorf("Headers = %#v, want empty non-nil", got.Headers)
			}
			if len(got.Rows) != 0 {
				t.Errorf("Rows = %d, want 0", len(got.Rows))
			}
			if m := DetectMapping(got.Headers); m != (FieldMapping{}) {
				t.Errorf("DetectMapping() = %+v, want nothing mapped", m)
			}
		})
	}
}

func TestParseCSV_BOMAndInvalidUTF8(t *testing.T) {
	input := "\xEF\xBB\xBFsku,name\nA1,caf\xE9\n"

	got, err := ParseCSV(strings.NewReader(input), ParseOptions{})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if got.Headers[0] != "sku" {
		t.Errorf("Headers[0] = %q, want BOM stripped", got.Headers[0])
	}
	if got.Rows[0]["name"] != "caf?" {
		t.Errorf("name = %q, want invalid byte replaced", got.Rows[0]["name"])
	}
}

func TestParseCSV_LegacyEncoding(t *testing.T) {
	input := "sku,name\nA1,caf\xE9\n"

	got, err := ParseCSV(strings.NewReader(input), ParseOptions{Encoding: "windows-1252"})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if got.Rows[0]["name"] != "café" {
		t.Errorf("name = %q, want %q", got.Rows[0]["name"], "café")
	}
}

func TestParseCSV_Delimiter(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("sku;qty\nA1;5\n"), ParseOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if got.Rows[0]["qty"] != "5" {
		t.Errorf("qty = %q, want 5", got.Rows[0]["qty"])
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    ParseOptions
		wantMsg string
	}{
		{"column count mismatch", "a,b\n1,2,3\n", ParseOptions{}, "line 2"},
		{"bare quote", "a,b\n1,x\"y\n", ParseOptions{}, "bare \""},
		{"unknown encoding", "a\n1\n", ParseOptions{Encoding: "klingon"}, "encoding error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, ErrInvalidCSV) {
				t.Fatalf("ParseCSV() error = %v, want ErrInvalidCSV", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", ',', false},
		{",", ',', false},
		{";", ';', false},
		{"|", '|', false},
		{"tab", '\t', false},
		{"\t", '\t', false},
		{"::", 0, true},
		{`"`, 0, true},
		{"\n", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDelimiter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidCSV) {
			t.Errorf("ParseDelimiter(%q) error = %v, want ErrInvalidCSV", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
