package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/casesync/internal/core"
	"github.com/JonMunkholm/casesync/internal/shiphero"
)

type processOptions struct {
	file         fileFlags
	refreshToken string
	accessToken  string
	accountID    string
	sku          string
	barcode      string
	qty          string
	dryRun       bool
}

// validationOutput is printed by --dry-run.
type validationOutput struct {
	Mapping    core.FieldMapping `json:"mapping"`
	ValidCount int               `json:"validCount"`
	ErrorCount int               `json:"errorCount"`
	Errors     []string          `json:"errors"`
}

func newProcessCmd(g *globalOptions) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Validate a CSV and upload its case definitions",
		Long: `Validate every row of FILE and upload the valid products to ShipHero
in sequential batches. The result is printed as JSON.

Columns are detected from the header names unless --sku, --barcode or --qty
are given. A refresh token is exchanged for an access token first unless
--access-token is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, g, opts, args[0])
		},
	}

	opts.file.register(cmd)
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "ShipHero refresh token (default $SHIPHERO_REFRESH_TOKEN)")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "ShipHero access token; skips the refresh exchange")
	cmd.Flags().StringVar(&opts.accountID, "account-id", "", "ShipHero account id, recorded only")
	cmd.Flags().StringVar(&opts.sku, "sku", "", "SKU column (default: detected)")
	cmd.Flags().StringVar(&opts.barcode, "barcode", "", "Case barcode column (default: detected)")
	cmd.Flags().StringVar(&opts.qty, "qty", "", "Case quantity column (default: detected)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate only; make no ShipHero calls")
	return cmd
}

func runProcess(cmd *cobra.Command, g *globalOptions, opts processOptions, path string) error {
	cfg := g.cfg

	parsed, err := readCSV(path, opts.file)
	if err != nil {
		return err
	}

	mapping := core.DetectMapping(parsed.Headers)
	if opts.sku != "" {
		mapping.SKU = opts.sku
	}
	if opts.barcode != "" {
		mapping.CaseBarcode = opts.barcode
	}
	if opts.qty != "" {
		mapping.CaseQuantity = opts.qty
	}
	if err := mapping.Validate(); err != nil {
		return withCode(exitUsage, fmt.Errorf("%w (headers: %s)", err, strings.Join(parsed.Headers, ", ")))
	}
	if !core.MappingUsesHeaders(mapping, parsed.Headers) {
		return withCode(exitUsage, fmt.Errorf("%w: mapped column missing from headers (%s)",
			core.ErrIncompleteMapping, strings.Join(parsed.Headers, ", ")))
	}

	if opts.dryRun {
		products, errs := core.ValidateRows(parsed.Rows, mapping)
		if errs == nil {
			errs = []string{}
		}
		return printJSON(cmd.OutOrStdout(), validationOutput{
			Mapping:    mapping,
			ValidCount: len(products),
			ErrorCount: len(errs),
			Errors:     errs,
		})
	}

	client := shiphero.NewClient(
		shiphero.WithAPIURL(cfg.ShipHero.APIURL),
		shiphero.WithAuthURL(cfg.ShipHero.AuthURL),
		shiphero.WithTimeout(cfg.ShipHero.Timeout),
	)

	ctx := cmd.Context()
	token := opts.accessToken
	if token == "" {
		rt := opts.refreshToken
		if rt == "" {
			rt = cfg.ShipHero.RefreshToken
		}
		tok, err := client.RefreshToken(ctx, rt)
		if err != nil {
			return err
		}
		token = tok.AccessToken
	}

	pacer, err := core.NewPacer(cfg.Processing.Throttle, cfg.Processing.RowDelay)
	if err != nil {
		return withCode(exitUsage, err)
	}
	service := core.NewService(client,
		core.WithPacer(pacer),
		core.WithBatchSize(cfg.Processing.BatchSize),
		core.WithMaxErrors(cfg.Processing.MaxErrors),
		core.WithRunTimeout(cfg.Processing.Timeout),
	)

	result, err := service.Process(ctx, core.ProcessRequest{
		Rows:       parsed.Rows,
		Mapping:    mapping,
		Credential: core.Credential{AccessToken: token, AccountID: opts.accountID},
		FileName:   filepath.Base(path),
	})
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if result.ErrorCount > 0 {
		return withCode(exitPartial, fmt.Errorf("%d of %d rows failed", result.ErrorCount, len(parsed.Rows)))
	}
	return nil
}
