package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RelientS/cursor-api/pkg/cli"
	"github.com/RelientS/cursor-api/pkg/config"
	"github.com/RelientS/cursor-api/pkg/usage"
	"github.com/RelientS/cursor-api/pkg/usage/storage"
)

var usageFlags struct {
	backend   string
	dbPath    string
	timeRange string
	requestID string
	dialect   string
	model     string
	status    string
	stream    string
	errors    bool
	minTokens int64
	maxTokens int64
	limit     int
	offset    int
	format    string
	output    string
	batch     int
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Query the usage database",
	Long: `Query, summarize and export recorded usage.

The usage command provides offline access to the request accounting
store written by a running server.

Subcommands:
  query   - Query usage records with filters
  report  - Summarize usage with per-model and per-dialect totals
  export  - Export matching records as JSON Lines

Examples:
  # Query the last day
  cursor-api usage query --time-range "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"

  # Failed requests for one model
  cursor-api usage query --model "claude-3.5-sonnet" --errors

  # Export everything to a file
  cursor-api usage export --output usage.jsonl`,
}

var usageQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query usage records",
	Long: `Query usage records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"

Examples:
  # Query specific time range
  cursor-api usage query --time-range "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"

  # Filter by dialect and model
  cursor-api usage query --dialect openai --model "gpt-4o"

  # Failed requests only
  cursor-api usage query --status failure

  # Export to JSON
  cursor-api usage query --format json --output usage.json`,
	RunE: queryUsage,
}

var usageReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded usage",
	Long: `Summarize recorded usage with per-dialect, per-model and per-status
totals, token consumption and error rate.`,
	RunE: reportUsage,
}

var usageExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export usage records as JSON Lines",
	Long: `Export matching usage records to a file, one JSON object per line.

Records are fetched in batches; progress is reported on stderr.

Examples:
  # Export everything
  cursor-api usage export --output usage.jsonl

  # Export one day of failures
  cursor-api usage export --status failure \
    --time-range "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z" --output failures.jsonl`,
	RunE: exportUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageQueryCmd, usageReportCmd, usageExportCmd)

	// Filter flags shared by every subcommand
	for _, cmd := range []*cobra.Command{usageQueryCmd, usageReportCmd, usageExportCmd} {
		cmd.Flags().StringVar(&usageFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
		cmd.Flags().StringVar(&usageFlags.dbPath, "db", "", "sqlite database path (uses config if not specified)")
		cmd.Flags().StringVar(&usageFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		cmd.Flags().StringVar(&usageFlags.dialect, "dialect", "", "filter by dialect (openai, anthropic)")
		cmd.Flags().StringVar(&usageFlags.model, "model", "", "filter by model")
		cmd.Flags().StringVar(&usageFlags.status, "status", "", "filter by status (success, failure, canceled)")
		cmd.Flags().BoolVar(&usageFlags.errors, "errors", false, "only records that carry an error")
	}

	// Flags for query command
	usageQueryCmd.Flags().StringVar(&usageFlags.requestID, "request-id", "", "filter by request id")
	usageQueryCmd.Flags().StringVar(&usageFlags.stream, "stream", "", "filter by streaming flag (true, false)")
	usageQueryCmd.Flags().Int64Var(&usageFlags.minTokens, "min-tokens", 0, "minimum total token threshold")
	usageQueryCmd.Flags().Int64Var(&usageFlags.maxTokens, "max-tokens", 0, "maximum total token threshold")
	usageQueryCmd.Flags().IntVar(&usageFlags.limit, "limit", 100, "max results")
	usageQueryCmd.Flags().IntVar(&usageFlags.offset, "offset", 0, "pagination offset")
	usageQueryCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json, csv")
	usageQueryCmd.Flags().StringVarP(&usageFlags.output, "output", "o", "", "output file (default: stdout)")

	// Flags for report command
	usageReportCmd.Flags().StringVarP(&usageFlags.output, "output", "o", "", "output file (default: stdout)")

	// Flags for export command
	usageExportCmd.Flags().StringVarP(&usageFlags.output, "output", "o", "", "output file (JSON Lines)")
	usageExportCmd.Flags().IntVar(&usageFlags.batch, "batch", 500, "records fetched per storage query")
}

// openCLIStorage opens the usage store for the offline commands. Flags win
// over the configuration file, and a pure-flag invocation works without a
// readable configuration at all.
func openCLIStorage() (usage.Storage, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(resolveConfigPath())
	if err != nil {
		if usageFlags.backend == "" {
			return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
		}
		cfg = config.Default()
	}

	backend := usageFlags.backend
	if backend == "" {
		backend = cfg.Usage.Backend
	}
	path := usageFlags.dbPath
	if path == "" {
		path = cfg.Usage.SQLite.Path
	}

	switch backend {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:        path,
			Driver:      cfg.Usage.SQLite.Driver,
			BusyTimeout: cfg.Usage.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, cli.NewCommandError("usage", fmt.Errorf("failed to open SQLite storage: %w", err))
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backend)
	}
}

// buildUsageQuery translates the filter flags into a store query.
func buildUsageQuery() (*usage.Query, error) {
	query := &usage.Query{
		Limit:  usageFlags.limit,
		Offset: usageFlags.offset,
	}

	if usageFlags.timeRange != "" {
		start, end, err := parseTimeRange(usageFlags.timeRange)
		if err != nil {
			return nil, err
		}
		query.StartTime = &start
		query.EndTime = &end
	}

	if usageFlags.requestID != "" {
		query.RequestID = usageFlags.requestID
	}
	if usageFlags.dialect != "" {
		query.Dialect = usageFlags.dialect
	}
	if usageFlags.model != "" {
		query.Model = usageFlags.model
	}
	if usageFlags.status != "" {
		query.Status = usageFlags.status
	}
	if usageFlags.stream != "" {
		stream, err := strconv.ParseBool(usageFlags.stream)
		if err != nil {
			return nil, fmt.Errorf("invalid --stream value %q (want true or false)", usageFlags.stream)
		}
		query.Stream = &stream
	}
	if usageFlags.errors {
		hasError := true
		query.HasError = &hasError
	}
	if usageFlags.minTokens > 0 {
		query.MinTokens = &usageFlags.minTokens
	}
	if usageFlags.maxTokens > 0 {
		query.MaxTokens = &usageFlags.maxTokens
	}

	return query, nil
}

func parseTimeRange(value string) (time.Time, time.Time, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}

	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	return start, end, nil
}

// forEachRecord pages through matching records newest first, calling fn for
// every record. The query's own Limit and Offset are overridden, so callers
// see the complete result set regardless of the backend's default page size.
func forEachRecord(ctx context.Context, store usage.Storage, query *usage.Query, batch int, fn func(*usage.Record) error) (int, error) {
	if batch <= 0 {
		batch = 500
	}

	paged := *query
	paged.Limit = batch
	total := 0
	for offset := 0; ; offset += batch {
		paged.Offset = offset
		records, err := store.Query(ctx, &paged)
		if err != nil {
			return total, err
		}
		for _, record := range records {
			if err := fn(record); err != nil {
				return total, err
			}
			total++
		}
		if len(records) < batch {
			return total, nil
		}
	}
}

func queryUsage(cmd *cobra.Command, args []string) error {
	store, err := openCLIStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildUsageQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("query failed: %w", err))
	}

	output, closeOutput, err := openOutput(usageFlags.output)
	if err != nil {
		return err
	}
	defer closeOutput()

	switch cli.OutputFormat(usageFlags.format) {
	case cli.FormatJSON:
		return outputUsageJSON(output, records)
	case cli.FormatCSV:
		return outputUsageCSV(output, records)
	default:
		return outputUsageText(output, records, query)
	}
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func outputUsageText(output *os.File, records []*usage.Record, query *usage.Query) error {
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(output, "Total records: %d\n", len(records))
	fmt.Fprintln(output)

	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return nil
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(output)
		}

		fmt.Fprintf(output, "Record ID: %s\n", record.ID)
		fmt.Fprintf(output, "Timestamp: %s\n", record.Timestamp.Format(time.RFC3339))
		if record.RequestID != "" {
			fmt.Fprintf(output, "Request ID: %s\n", record.RequestID)
		}
		fmt.Fprintf(output, "Dialect: %s\n", record.Dialect)
		fmt.Fprintf(output, "Model: %s\n", record.Model)
		fmt.Fprintf(output, "Status: %s (stream: %t)\n", record.Status, record.Stream)
		fmt.Fprintf(output, "Duration: %s\n", record.Duration)
		fmt.Fprintf(output, "Tokens: %d (input: %d, output: %d)\n",
			record.TotalTokens(), record.InputTokens, record.OutputTokens)
		if record.TotalCents > 0 {
			fmt.Fprintf(output, "Cost: %.2f cents\n", record.TotalCents)
		}
		if record.HasError() {
			fmt.Fprintf(output, "Error: %s: %s\n", record.ErrorCode, record.ErrorMessage)
		}

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			remaining := len(records) - 10
			fmt.Fprintln(output)
			fmt.Fprintf(output, "... and %d more records\n", remaining)
			fmt.Fprintf(output, "Use --limit and --offset for pagination.\n")
			break
		}
	}

	return nil
}

func outputUsageJSON(output *os.File, records []*usage.Record) error {
	formatter := cli.NewFormatter(cli.FormatJSON)
	return formatter.FormatTo(output, map[string]interface{}{
		"total_records": len(records),
		"records":       records,
	})
}

func outputUsageCSV(output *os.File, records []*usage.Record) error {
	formatter := &cli.CSVFormatter{Headers: []string{
		"id", "timestamp", "request_id", "dialect", "model", "stream",
		"status", "duration_ms", "input_tokens", "output_tokens",
		"cache_write_tokens", "cache_read_tokens", "total_cents", "error_code",
	}}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.ID,
			record.Timestamp.Format(time.RFC3339),
			record.RequestID,
			record.Dialect,
			record.Model,
			strconv.FormatBool(record.Stream),
			record.Status,
			strconv.FormatInt(record.Duration.Milliseconds(), 10),
			strconv.FormatInt(record.InputTokens, 10),
			strconv.FormatInt(record.OutputTokens, 10),
			strconv.FormatInt(record.CacheWriteTokens, 10),
			strconv.FormatInt(record.CacheReadTokens, 10),
			strconv.FormatFloat(record.TotalCents, 'f', -1, 64),
			record.ErrorCode,
		})
	}

	return formatter.FormatTo(output, rows)
}

func reportUsage(cmd *cobra.Command, args []string) error {
	store, err := openCLIStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildUsageQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var (
		totalTokens   int64
		totalCents    float64
		errored       int
		dialectCounts = make(map[string]int)
		modelCounts   = make(map[string]int)
		statusCounts  = make(map[string]int)
	)
	total, err := forEachRecord(ctx, store, query, usageFlags.batch, func(record *usage.Record) error {
		totalTokens += record.TotalTokens()
		totalCents += record.TotalCents
		if record.HasError() {
			errored++
		}
		dialectCounts[record.Dialect]++
		modelCounts[record.Model]++
		statusCounts[record.Status]++
		return nil
	})
	if err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("query failed: %w", err))
	}

	output, closeOutput, err := openOutput(usageFlags.output)
	if err != nil {
		return err
	}
	defer closeOutput()

	fmt.Fprintln(output, "Usage Report")
	fmt.Fprintln(output, "============")
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time Range: %s to %s\n",
			query.StartTime.Format("2006-01-02"),
			query.EndTime.Format("2006-01-02"))
	}
	fmt.Fprintf(output, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(output)

	fmt.Fprintln(output, "Summary:")
	fmt.Fprintln(output, "--------")
	fmt.Fprintf(output, "Total Requests: %d\n", total)
	fmt.Fprintf(output, "Total Tokens: %d\n", totalTokens)
	if totalCents > 0 {
		fmt.Fprintf(output, "Total Cost: %.2f cents\n", totalCents)
	}
	if total > 0 {
		pct := float64(errored) / float64(total) * 100
		fmt.Fprintf(output, "Requests with Errors: %d (%.0f%%)\n", errored, pct)
	}
	fmt.Fprintln(output)

	writeBreakdown(output, "By Dialect:", dialectCounts, total)
	writeBreakdown(output, "By Model:", modelCounts, total)
	writeBreakdown(output, "By Status:", statusCounts, total)

	return nil
}

func writeBreakdown(output *os.File, title string, counts map[string]int, total int) {
	if total == 0 {
		return
	}

	fmt.Fprintln(output, title)
	for _, key := range sortedKeys(counts) {
		count := counts[key]
		pct := float64(count) / float64(total) * 100
		fmt.Fprintf(output, "  %s: %d requests (%.0f%%)\n", key, count, pct)
	}
	fmt.Fprintln(output)
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func exportUsage(cmd *cobra.Command, args []string) error {
	if usageFlags.output == "" {
		return fmt.Errorf("--output is required for export")
	}

	store, err := openCLIStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildUsageQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	total, err := store.Count(ctx, query)
	if err != nil {
		return cli.NewCommandError("usage", fmt.Errorf("count failed: %w", err))
	}

	output, err := os.Create(usageFlags.output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer output.Close()

	encoder := json.NewEncoder(output)
	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)

	written := 0
	_, err = forEachRecord(ctx, store, query, usageFlags.batch, func(record *usage.Record) error {
		if err := encoder.Encode(record); err != nil {
			return err
		}
		written++
		progress.Update(int64(written))
		return nil
	})
	if err != nil {
		progress.Error(err)
		return cli.NewCommandError("usage", fmt.Errorf("export failed: %w", err))
	}
	progress.Finish()

	fmt.Printf("✓ Exported %d records to %s\n", written, usageFlags.output)
	return nil
}
