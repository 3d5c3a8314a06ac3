package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// ErrInvalidCSV wraps every fatal parse failure.
var ErrInvalidCSV = errors.New("invalid csv")

// ParseOptions tunes ParseCSV. The zero value parses comma-separated UTF-8.
type ParseOptions struct {
	// Delimiter defaults to ','.
	Delimiter rune

	// Encoding is a WHATWG label such as "windows-1252". Empty or "utf-8"
	// reads the input as UTF-8.
	Encoding string
}

// ParsedFile is the header line plus every data row, in file order.
type ParsedFile struct {
	Headers []string
	Rows    []RawRow
	Bytes   int64 // bytes consumed from the source
}

// ParseCSV reads a CSV whose first line is the header.
//
// Blank lines are skipped. Malformed quoting or a row whose column count
// differs from the header is fatal; there is no partial recovery. An empty
// input, or a header line with no data line after it, yields a ParsedFile
// with no headers rather than an error.
func ParseCSV(r io.Reader, opts ParseOptions) (*ParsedFile, error) {
	src, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}
	counter := WrapForStreaming(src)

	reader := csv.NewReader(counter)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = 0
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return &ParsedFile{Headers: []string{}, Rows: []RawRow{}, Bytes: counter.BytesRead}, nil
	}
	if err != nil {
		return nil, csvError(err)
	}

	file := &ParsedFile{
		Headers: header,
		Rows:    make([]RawRow, 0, 64),
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}

		row := make(RawRow, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		file.Rows = append(file.Rows, row)
	}

	file.Bytes = counter.BytesRead
	if len(file.Rows) == 0 {
		// Without a data line there is nothing to map.
		file.Headers = []string{}
	}
	return file, nil
}

// decodeReader wraps r with a charset decoder when a non-UTF-8 label is given.
func decodeReader(r io.Reader, label string) (io.Reader, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return r, nil
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding error: unknown encoding %q", ErrInvalidCSV, label)
	}
	name, _ := htmlindex.Name(enc)
	if name == "utf-8" {
		return r, nil
	}
	return enc.NewDecoder().Reader(r), nil
}

// ParseDelimiter accepts a single character or the word "tab". Empty means
// comma.
func ParseDelimiter(v string) (rune, error) {
	switch v {
	case "", ",":
		return ',', nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("%w: unsupported delimiter %q", ErrInvalidCSV, v)
	}
	r, _ := utf8.DecodeRuneInString(v)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("%w: unsupported delimiter %q", ErrInvalidCSV, v)
	}
	return r, nil
}

// csvError converts an encoding/csv failure into a single descriptive error.
func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, perr.StartLine, perr.Err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidCSV, err)
}
