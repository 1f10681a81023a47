// Command generator reconciles the HMRC reporting-funds workbook with the
// curated errata, family and category data, resolves tickers for the
// qualifying US funds through OpenFIGI, and writes the categorized ETF
// list, the complementary excluded-funds list and the sibling report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"fundcli/internal/category"
	"fundcli/internal/config"
	"fundcli/internal/errata"
	"fundcli/internal/exporter"
	"fundcli/internal/extract"
	"fundcli/internal/family"
	"fundcli/internal/figi"
	"fundcli/internal/infrastructure"
	"fundcli/internal/pipeline"
	"fundcli/internal/results"
	"fundcli/internal/validation"
	"fundcli/pkg/contracts"
	"fundcli/pkg/contracts/domain"
)

type options struct {
	configPath string
	sheet      string
	errata     string
	families   string
	categories string
	cache      string
	csvOut     string
	wikiOut    string
	exclCSV    string
	exclWiki   string
	siblings   string

	noCallFigi           bool
	noDieOnUncategorized bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "read configuration from FILE")
	flag.StringVar(&opts.sheet, "sheet", "", "read the HMRC workbook from FILE")
	flag.StringVar(&opts.errata, "errata", "", "read errata rows from FILE")
	flag.StringVar(&opts.families, "families", "", "read fund family aliases from FILE")
	flag.StringVar(&opts.categories, "categories", "", "read fund categories from FILE")
	flag.StringVar(&opts.cache, "cache", "", "cache OpenFIGI results in FILE")
	flag.StringVar(&opts.csvOut, "csv-output", "", "write the primary list as CSV to FILE")
	flag.StringVar(&opts.wikiOut, "wiki-output", "", "write the primary list as MediaWiki markup to FILE (stdout when no CSV output is requested)")
	flag.StringVar(&opts.exclCSV, "excluded-csv-output", "", "write the excluded-funds list as CSV to FILE")
	flag.StringVar(&opts.exclWiki, "excluded-wiki-output", "", "write the excluded-funds list as MediaWiki markup to FILE")
	flag.StringVar(&opts.siblings, "siblings-output", "", "write the sibling report as CSV to FILE")
	flag.BoolVar(&opts.noCallFigi, "no-call-figi", false, "use the OpenFIGI cache only and never call the API (requires -cache)")
	flag.BoolVar(&opts.noDieOnUncategorized, "no-die-on-uncategorized", false, "publish without funds that have no category instead of failing")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	applyFlagOverrides(cfg, &opts)

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureRunID(ctx)

	if err := run(ctx, cfg, &opts, logger); err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			logger.ErrorContext(ctx, "run failed",
				slog.String("stage", stageErr.Stage),
				slog.String("kind", string(stageErr.Kind)),
				slog.String("error", err.Error()))
		} else {
			logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

// applyFlagOverrides lets explicit flags win over the configured paths.
func applyFlagOverrides(cfg *config.Config, opts *options) {
	if opts.sheet != "" {
		cfg.Paths.SheetFile = opts.sheet
	}
	if opts.errata != "" {
		cfg.Paths.ErrataFile = opts.errata
	}
	if opts.families != "" {
		cfg.Paths.FamilyFile = opts.families
	}
	if opts.categories != "" {
		cfg.Paths.CategoryFile = opts.categories
	}
	if opts.cache != "" {
		cfg.Paths.CacheFile = opts.cache
	}
}

// generator carries the data flowing between stages of one run.
type generator struct {
	cfg    *config.Config
	opts   *options
	logger *slog.Logger

	raws     []domain.RawRecord
	errata   map[string]domain.Erratum
	aliases  []family.Alias
	table    category.Table
	eligible []domain.EligibleRecord
	enriched []domain.EnrichedRecord
	primary  []domain.ResultRecord
	excluded []domain.ResultRecord
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) error {
	if opts.noCallFigi && cfg.Paths.CacheFile == "" {
		return fmt.Errorf("-no-call-figi requires a cache file")
	}

	g := &generator{cfg: cfg, opts: opts, logger: logger}
	return pipeline.NewRunner(logger).Run(ctx, []pipeline.Stage{
		{Name: "validate", Run: g.validateInputs},
		{Name: "read", Run: g.readInputs},
		{Name: "filter", Run: g.filter},
		{Name: "resolve", Run: g.resolve},
		{Name: "categorize", Run: g.categorize},
		{Name: "export", Run: g.export},
	})
}

func (g *generator) validateInputs(ctx context.Context) error {
	v := validation.NewFileValidator(g.logger)
	for _, path := range []string{
		g.cfg.Paths.SheetPath(),
		g.cfg.Paths.ErrataPath(),
		g.cfg.Paths.FamilyPath(),
		g.cfg.Paths.CategoryPath(),
	} {
		if err := v.ValidateInputFile(path); err != nil {
			return err
		}
	}
	for _, out := range []string{
		g.opts.csvOut, g.opts.wikiOut,
		g.opts.exclCSV, g.opts.exclWiki, g.opts.siblings,
	} {
		if out == "" {
			continue
		}
		if err := v.ValidateOutputDirectory(filepath.Dir(out)); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) readInputs(ctx context.Context) error {
	var err error
	if g.raws, err = extract.ParseWorkbook(g.cfg.Paths.SheetPath(), g.logger); err != nil {
		return err
	}
	if g.errata, err = errata.ReadErrata(g.cfg.Paths.ErrataPath(), g.logger); err != nil {
		return err
	}
	if g.aliases, err = family.ReadAliases(g.cfg.Paths.FamilyPath(), g.logger); err != nil {
		return err
	}
	if g.table, err = category.ReadTable(g.cfg.Paths.CategoryPath(), g.logger); err != nil {
		return err
	}
	return nil
}

func (g *generator) filter(ctx context.Context) error {
	var dropped []domain.DroppedRecord
	g.eligible, dropped = errata.Filter(g.raws, g.errata, g.logger)
	g.logger.InfoContext(ctx, "eligibility filter done",
		slog.Int("eligible", len(g.eligible)),
		slog.Int("dropped", len(dropped)))
	return nil
}

func (g *generator) resolve(ctx context.Context) error {
	store, err := g.openStore()
	if err != nil {
		return err
	}

	isins := make([]string, len(g.eligible))
	for i, rec := range g.eligible {
		isins[i] = rec.ISIN
	}

	var resolved map[string]*domain.FigiEntry
	if g.opts.noCallFigi {
		resolved = cachedOnly(store, isins, g.logger)
	} else {
		client := figi.NewClient(g.cfg.FIGI.Endpoint, g.cfg.FIGI.APIKey, g.logger)
		resolver := figi.NewResolver(client, store, figi.Config{
			JobsPerCall:    g.cfg.FIGI.JobsPerCall,
			CallsPerMinute: float64(g.cfg.FIGI.CallsPerMinute),
			MaxAttempts:    g.cfg.FIGI.MaxAttempts,
			RetryBaseDelay: g.cfg.FIGI.RetryBaseDelay,
		}, g.logger)
		if resolved, err = resolver.Resolve(ctx, isins); err != nil {
			return err
		}
	}

	normalizer := family.NewNormalizer(g.aliases, g.logger)
	g.enriched = make([]domain.EnrichedRecord, 0, len(g.eligible))
	for _, rec := range g.eligible {
		entry := resolved[rec.ISIN]

		fam, name := normalizer.Normalize(rec.ParentFund, rec.SubFund)
		enriched := domain.EnrichedRecord{
			EligibleRecord: rec,
			Family:         fam,
			DisplayName:    name,
		}
		if entry != nil {
			enriched.Ticker = entry.Ticker
		}
		g.enriched = append(g.enriched, enriched)
	}
	return nil
}

// openStore opens the persistent resolver cache, or an in-memory store
// when no cache file is configured.
func (g *generator) openStore() (figi.Store, error) {
	path := g.cfg.Paths.CachePath()
	if path == "" {
		return figi.NewMemStore(), nil
	}
	return figi.NewFileStore(path)
}

// cachedOnly serves a resolution entirely from the cache. ISINs never
// resolved stay absent from the result and publish without a ticker.
func cachedOnly(store figi.Store, isins []string, logger *slog.Logger) map[string]*domain.FigiEntry {
	result := make(map[string]*domain.FigiEntry, len(isins))
	misses := 0
	for _, isin := range isins {
		if entry, ok := store.Get(isin); ok {
			result[isin] = entry
		} else {
			misses++
		}
	}
	logger.Info("resolved from cache only",
		slog.Int("hits", len(result)),
		slog.Int("misses", misses))
	return result
}

func (g *generator) categorize(ctx context.Context) error {
	// Only funds with a resolved ticker need a curation decision.
	var resolved []domain.EnrichedRecord
	for _, rec := range g.enriched {
		if rec.Ticker != "" {
			resolved = append(resolved, rec)
		}
	}

	assignment, err := category.Assign(resolved, g.table)
	if err != nil {
		var uncat *category.UncategorizedError
		if !errors.As(err, &uncat) || !g.opts.noDieOnUncategorized {
			return err
		}
		g.logger.WarnContext(ctx, "publishing without uncategorized funds",
			slog.Int("count", len(uncat.Funds)))
	}
	g.primary = results.Join(g.enriched, assignment, g.logger)

	inverse, invErr := category.Assign(resolved, category.Inverse(g.table))
	if invErr != nil {
		var uncat *category.UncategorizedError
		if !errors.As(invErr, &uncat) {
			return invErr
		}
		// Same funds already reported (or waived) on the primary pass.
	}
	g.excluded = results.Join(g.enriched, inverse, g.logger)
	return nil
}

func (g *generator) export(ctx context.Context) error {
	csvWriter := exporter.NewCSVWriter(g.logger)
	wikiWriter := exporter.NewWikiWriter(g.logger)

	if g.opts.csvOut != "" {
		if err := csvWriter.WriteResults(g.opts.csvOut, g.primary); err != nil {
			return err
		}
	}
	if g.opts.wikiOut != "" || g.opts.csvOut == "" {
		if err := wikiWriter.WriteFile(g.opts.wikiOut, g.primary); err != nil {
			return err
		}
	}
	if g.opts.exclCSV != "" {
		if err := csvWriter.WriteResults(g.opts.exclCSV, g.excluded); err != nil {
			return err
		}
	}
	if g.opts.exclWiki != "" {
		if err := wikiWriter.WriteFile(g.opts.exclWiki, g.excluded); err != nil {
			return err
		}
	}
	if g.opts.siblings != "" {
		siblings := results.Siblings(g.enriched, g.primary, g.excluded)
		if err := csvWriter.WriteSiblings(g.opts.siblings, siblings); err != nil {
			return err
		}
		g.logger.InfoContext(ctx, "sibling report written",
			slog.String("path", g.opts.siblings),
			slog.Int("count", len(siblings)))
	}
	return nil
}
