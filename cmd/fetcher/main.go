// Command fetcher downloads the latest HMRC reporting-funds workbook.
// It loads the HMRC publication page in headless Chrome, takes the first
// link ending in .xlsx, .xlsm or .ods, and downloads it with a
// conditional GET so an unchanged sheet is never re-fetched.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"

	"fundcli/internal/config"
	"fundcli/internal/infrastructure"
	"fundcli/pkg/contracts"
)

var sheetLinkPattern = regexp.MustCompile(`\.(xls[mx]|ods)$`)

func main() {
	configPath := flag.String("config", "", "read configuration from FILE")
	pageURL := flag.String("page", "", "HMRC publication page URL (overrides configuration)")
	out := flag.String("out", "", "save the workbook to FILE (overrides configuration)")
	headless := flag.Bool("headless", true, "run the browser headless")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *pageURL == "" {
		*pageURL = cfg.HMRC.PageURL
	}
	if *out == "" {
		*out = cfg.Paths.SheetPath()
	}

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
	ctx, cancel := context.WithTimeout(ctx, cfg.HMRC.Timeout)
	defer cancel()

	if err := run(ctx, *pageURL, *out, *headless, logger); err != nil {
		logger.ErrorContext(ctx, "fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, pageURL, out string, headless bool, logger *slog.Logger) error {
	sheetURL, err := findSheetURL(ctx, pageURL, headless, logger)
	if err != nil {
		return fmt.Errorf("failed to locate sheet link on %s: %w", pageURL, err)
	}
	logger.InfoContext(ctx, "sheet link found", slog.String("url", sheetURL))
	return download(ctx, sheetURL, out, logger)
}

// findSheetURL loads the publication page and returns the first link
// whose URL carries a spreadsheet extension.
func findSheetURL(ctx context.Context, pageURL string, headless bool, logger *slog.Logger) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	logger.InfoContext(ctx, "loading HMRC publication page", slog.String("url", pageURL))

	var hrefs []string
	js := `Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(js, &hrefs),
	)
	if err != nil {
		return "", err
	}

	for _, href := range hrefs {
		if sheetLinkPattern.MatchString(href) {
			return href, nil
		}
	}
	return "", fmt.Errorf("no spreadsheet link on the page (%d links scanned)", len(hrefs))
}

// download fetches url into dest. When dest already exists its mtime is
// sent as If-Modified-Since; a 304 response keeps the local copy.
func download(ctx context.Context, url, dest string, logger *slog.Logger) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	if info, err := os.Stat(dest); err == nil {
		req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
	}

	logger.InfoContext(ctx, "downloading sheet",
		slog.String("url", url),
		slog.String("dest", dest))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		logger.InfoContext(ctx, "sheet unchanged, keeping local copy",
			slog.String("dest", dest))
		return nil
	case http.StatusOK:
	default:
		return fmt.Errorf("bad status for %s: %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to a temp file first so an interrupted download never
	// replaces a good sheet with a truncated one.
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}

	logger.InfoContext(ctx, "sheet downloaded",
		slog.String("dest", dest),
		slog.Int64("size_bytes", written),
		slog.String("fetched_at", time.Now().UTC().Format(time.RFC3339)))
	return nil
}
