package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/sources/bookmarks"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/utils"
)

// linkcheck exit codes
const (
	ExitOK      = 0
	ExitDead    = 1
	ExitUsage   = 2
	ExitFailed  = 3
	ExitAborted = 130
)

const (
	maxListingBytes = 16 << 20
	serverTimeout   = 30 * time.Second
)

// LinkCheck is the linkcheck CLI: it loads targets, runs a batch and prints the verdicts.
type LinkCheck struct {
	cfg    *config.ClientConfig
	logger logger.Logger
	http   *http.Client
	stdout io.Writer
	stderr io.Writer
}

// RunLinkCheck parses args, runs one batch and returns the process exit code.
// Cancelling ctx aborts the batch.
func RunLinkCheck(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadClient(args)
	if errors.Is(err, config.ErrHelp) {
		fmt.Fprint(stdout, config.ClientUsage())
		return ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "❌ %v\n\n%s", err, config.ClientUsage())
		return ExitUsage
	}

	lc := NewLinkCheck(cfg, logger.New(cfg.LogLevel, true), stdout, stderr)
	code, err := lc.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "❌ linkcheck: %v\n", err)
	}
	return code
}

func NewLinkCheck(cfg *config.ClientConfig, log logger.Logger, stdout, stderr io.Writer) *LinkCheck {
	return &LinkCheck{
		cfg:    cfg,
		logger: log,
		http:   linkhealth.NewHTTPClient(),
		stdout: stdout,
		stderr: stderr,
	}
}

type namedTarget struct {
	linkhealth.Target
	Name string
}

func (lc *LinkCheck) Run(ctx context.Context) (int, error) {
	targets, err := lc.loadTargets(ctx)
	if err != nil {
		return ExitFailed, err
	}

	store, closeStore, err := lc.cacheStore()
	if err != nil {
		return ExitFailed, err
	}
	defer closeStore()
	cache := linkhealth.LoadCache(ctx, store, lc.logger)

	opts := []linkhealth.ClientOption{linkhealth.WithClientLogger(lc.logger)}
	if lc.cfg.Server != "" {
		opts = append(opts, linkhealth.WithDelegate(linkhealth.NewDelegate(lc.cfg.Server, lc.http).WithLogger(lc.logger)))
	}
	client := linkhealth.NewClient(linkhealth.NewHTTPChecker(lc.http, ""), opts...)
	batcher := linkhealth.NewBatcher(client, cache, lc.logger)

	plain := make([]linkhealth.Target, len(targets))
	for i, t := range targets {
		plain[i] = t.Target
	}

	results := batcher.Run(ctx, plain, lc.progress(), linkhealth.BatchOptions{
		Concurrency:  lc.cfg.Concurrency,
		Timeout:      lc.cfg.Timeout,
		CacheTTL:     lc.cfg.CacheTTL,
		ForceRefresh: lc.cfg.ForceRefresh,
	})
	aborted := linkhealth.Aborted(results)
	if !lc.cfg.Quiet {
		fmt.Fprintln(lc.stderr)
	}

	if err := lc.print(targets, results); err != nil {
		return ExitFailed, err
	}

	if aborted {
		fmt.Fprintln(lc.stderr, "⏹ aborted, unchecked links are reported dead and the cache was not saved")
		return ExitAborted, nil
	}

	if lc.cfg.Report {
		if err := lc.report(ctx, results); err != nil {
			return ExitFailed, err
		}
	}

	if countDead(results) > 0 {
		return ExitDead, nil
	}
	return ExitOK, nil
}

func (lc *LinkCheck) progress() linkhealth.ProgressFunc {
	if lc.cfg.Quiet {
		return nil
	}
	return func(processed, total int) {
		fmt.Fprintf(lc.stderr, "\rchecking links %d/%d", processed, total)
	}
}

func (lc *LinkCheck) loadTargets(ctx context.Context) ([]namedTarget, error) {
	if lc.cfg.Source == config.SourceServer {
		return lc.fetchTargets(ctx)
	}

	file, err := bookmarks.NewLoader(lc.cfg.Source).Load()
	if err != nil {
		return nil, err
	}
	list, err := bookmarks.NewMapper().Map(file)
	if err != nil {
		return nil, err
	}
	out := make([]namedTarget, 0, len(list))
	for _, b := range list {
		out = append(out, namedTarget{Target: linkhealth.Target{ID: b.ID, URL: b.URL}, Name: b.Name})
	}
	return out, nil
}

type bookmarkListing struct {
	Bookmarks []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"bookmarks"`
}

func (lc *LinkCheck) fetchTargets(ctx context.Context) ([]namedTarget, error) {
	ctx, cancel := context.WithTimeout(ctx, serverTimeout)
	defer cancel()

	endpoint := strings.TrimRight(lc.cfg.Server, "/") + "/api/bookmarks"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build bookmarks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := lc.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bookmarks: %w", err)
	}
	defer utils.DrainClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch bookmarks: unexpected status %s", resp.Status)
	}

	var listing bookmarkListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingBytes)).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}

	out := make([]namedTarget, 0, len(listing.Bookmarks))
	for _, b := range listing.Bookmarks {
		out = append(out, namedTarget{Target: linkhealth.Target{ID: b.ID, URL: b.URL}, Name: b.Name})
	}
	return out, nil
}

func (lc *LinkCheck) cacheStore() (linkhealth.BlobStore, func(), error) {
	if lc.cfg.CacheRedis == "" {
		lc.logger.Debug("using file cache", logger.String("path", lc.cfg.CacheFile))
		return linkhealth.NewFileStore(lc.cfg.CacheFile), func() {}, nil
	}

	client, err := redis.New(redis.ConnectOptions{
		Addr:           lc.cfg.CacheRedis,
		DialTimeout:    3 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
		PoolSize:       2,
		ConnectTimeout: 5 * time.Second,
		RetryInterval:  250 * time.Millisecond,
		MaxWait:        2 * time.Second,
		PingTimeout:    time.Second,
		WarnThreshold:  1,
	}, lc.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect cache redis: %w", err)
	}
	closeFn := func() { utils.MustClose(client, lc.logger, "cache redis") }
	return redisstore.NewCacheBlob(client, linkhealth.CacheKey), closeFn, nil
}

func (lc *LinkCheck) print(targets []namedTarget, results []linkhealth.Result) error {
	if lc.cfg.Output == config.OutputJSON {
		enc := json.NewEncoder(lc.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(lc.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSOURCE\tNAME\tURL")
	for i, r := range results {
		mark := "✓"
		if r.Status != linkhealth.StatusOK {
			mark = "✗"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", mark, r.Status, r.Source, targets[i].Name, r.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(lc.stdout, "\n%d links, %d dead\n", len(results), countDead(results))
	return err
}

// report posts every resolved verdict to the server. Skipped targets are left out.
func (lc *LinkCheck) report(ctx context.Context, results []linkhealth.Result) error {
	var body handlers.HealthReport
	for _, r := range results {
		if r.Source == linkhealth.SourceSkipped || r.ID == "" {
			continue
		}
		body.Results = append(body.Results, handlers.HealthReportItem{ID: r.ID, Status: r.Status, CheckedAt: r.CheckedAt})
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, serverTimeout)
	defer cancel()

	endpoint := strings.TrimRight(lc.cfg.Server, "/") + "/api/bookmarks/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lc.http.Do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	defer utils.DrainClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send report: unexpected status %s", resp.Status)
	}
	lc.logger.Info("results reported", logger.Int("count", len(body.Results)))
	return nil
}

func countDead(results []linkhealth.Result) int {
	n := 0
	for _, r := range results {
		if r.Status != linkhealth.StatusOK {
			n++
		}
	}
	return n
}
