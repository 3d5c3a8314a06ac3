package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/casesync/internal/core"
)

type fileFlags struct {
	encoding  string
	delimiter string
}

func (f *fileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "Input charset label, e.g. windows-1252 (default UTF-8)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", `Field delimiter; use "tab" for TSV`)
}

// readCSV parses path, or stdin when path is "-".
func readCSV(path string, f fileFlags) (*core.ParsedFile, error) {
	delim, err := core.ParseDelimiter(f.delimiter)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("open %s: %w", path, err))
		}
		defer fh.Close()
		r = fh
	}

	return core.ParseCSV(r, core.ParseOptions{Delimiter: delim, Encoding: f.encoding})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type headersOutput struct {
	Headers         []string          `json:"headers"`
	Mapping         core.FieldMapping `json:"mapping"`
	MappingComplete bool              `json:"mappingComplete"`
	RowCount        int               `json:"rowCount"`
}

func newHeadersCmd(_ *globalOptions) *cobra.Command {
	var ff fileFlags

	cmd := &cobra.Command{
		Use:   "headers FILE",
		Short: "Print the CSV headers and the detected column mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := readCSV(args[0], ff)
			if err != nil {
				return err
			}
			m := core.DetectMapping(parsed.Headers)
			return printJSON(cmd.OutOrStdout(), headersOutput{
				Headers:         parsed.Headers,
				Mapping:         m,
				MappingComplete: m.Complete(),
				RowCount:        len(parsed.Rows),
			})
		},
	}
	ff.register(cmd)
	return cmd
}
