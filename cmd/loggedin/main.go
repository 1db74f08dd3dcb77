package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"loggedin/internal/audit"
	"loggedin/internal/config"
	"loggedin/internal/dashboard"
	"loggedin/internal/detect"
	"loggedin/internal/explain"
	"loggedin/internal/ingest"
	"loggedin/internal/logging"
	"loggedin/internal/metrics"
	"loggedin/internal/notify"
	"loggedin/internal/parser"
	"loggedin/internal/report"
	"loggedin/internal/sample"
	"loggedin/internal/store"
	"loggedin/internal/types"
)

const defaultConfigPath = "loggedin.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	cmd := os.Args[1]
	switch cmd {
	case "analyze":
		err = analyzeCommand(ctx, os.Args[2:], os.Stdout)
	case "generate":
		err = generateCommand(os.Args[2:], os.Stdout)
	case "history":
		err = historyCommand(ctx, os.Args[2:], os.Stdout)
	case "audit":
		err = auditCommand(os.Args[2:], os.Stdout)
	case "serve":
		err = serveCommand(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "loggedin %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: loggedin <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  analyze   Analyze exported Windows security logs")
	fmt.Println("  generate  Write a synthetic sample log")
	fmt.Println("  history   List archived analysis runs")
	fmt.Println("  audit     Print the alert audit log")
	fmt.Println("  serve     Start the dashboard and /metrics endpoint")
}

// loadConfig reads .env, the YAML file and configures logging
func loadConfig(path, envPath string) (*types.Config, error) {
	if err := config.LoadEnv(envPath); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

type analyzeOptions struct {
	jsonPath   string
	reportType string
	noArchive  bool
	noNotify   bool
	now        func() time.Time
}

func analyzeCommand(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	envPath := fs.String("env", ".env", "Path to .env file")
	format := fs.String("format", "", "Input format: kv or csv (overrides config)")
	strict := fs.Bool("strict", false, "Abort on the first malformed line")
	jsonPath := fs.String("json", "", "Also write the report as JSON to this path")
	reportType := fs.String("report", "", "Text report type: security or technical")
	shards := fs.Int("shards", 0, "Aggregate in parallel over N shards")
	noArchive := fs.Bool("no-archive", false, "Do not store the run in the archive")
	noNotify := fs.Bool("no-notify", false, "Do not forward alerts to sinks")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, *envPath)
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		cfg.Input.Paths = fs.Args()
	}
	if *format != "" {
		cfg.Input.Format = *format
	}
	if *strict {
		cfg.Input.Strict = true
	}
	if *shards > 0 {
		cfg.Detection.Shards = *shards
	}
	if *reportType != "" {
		cfg.Output.ReportType = *reportType
	}

	return analyze(ctx, cfg, analyzeOptions{
		jsonPath:   *jsonPath,
		reportType: cfg.Output.ReportType,
		noArchive:  *noArchive,
		noNotify:   *noNotify,
		now:        time.Now,
	}, stdout)
}

func analyze(ctx context.Context, cfg *types.Config, opts analyzeOptions, stdout io.Writer) error {
	log := logging.For("analyze")

	if len(cfg.Input.Paths) == 0 {
		return errors.New("no input files given")
	}
	switch opts.reportType {
	case "", report.TypeSecurity, report.TypeTechnical:
	default:
		return fmt.Errorf("%w: %q", report.ErrUnknownReportType, opts.reportType)
	}

	detectCfg, err := config.DetectConfig(cfg)
	if err != nil {
		return err
	}
	classifier, err := detect.NewClassifier(detectCfg)
	if err != nil {
		return err
	}
	p, err := parser.ForFormat(cfg.Input.Format)
	if err != nil {
		return err
	}

	batch, err := ingest.ReadBatch(ctx, cfg.Input.Paths, p, cfg.Input.Strict)
	if err != nil {
		return err
	}
	log.Info().
		Int("records", len(batch.Records)).
		Int("malformed", batch.Malformed).
		Int("skipped", batch.Skipped).
		Msg("input read")

	start := time.Now()
	var rep *report.Report
	if cfg.Detection.Shards > 1 {
		rep, err = report.AnalyzeSharded(batch.Records, classifier, cfg.Detection.Shards)
	} else {
		rep, err = report.Analyze(batch.Records, classifier)
	}
	if err != nil {
		return err
	}
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	metrics.EventsProcessed.Add(float64(rep.TotalEvents))
	metrics.ReportsGenerated.Inc()
	for _, a := range rep.Alerts {
		metrics.RecordAlerts(a.Kind)
	}

	textOpts := report.TextOptions{Type: opts.reportType, GeneratedAt: opts.now()}
	if cfg.Detection.Explain {
		textOpts.Explain = explainFunc(ctx, cfg)
	}
	if err := report.WriteText(stdout, rep, textOpts); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.jsonPath != "" {
		f, err := os.Create(opts.jsonPath)
		if err != nil {
			return fmt.Errorf("failed to create json report: %w", err)
		}
		defer f.Close()
		if err := report.WriteJSON(f, rep); err != nil {
			return err
		}
	}

	runID := store.NewRunID()

	if err := audit.NewLogger(cfg.Output.AuditLogPath).LogAlerts(rep.Alerts, runID); err != nil {
		log.Error().Err(err).Msg("failed to write to audit log")
	}

	if !opts.noNotify {
		// delivery failures are already logged per sink
		_ = newBroker(cfg).Notify(ctx, rep.Alerts)
	}

	if !opts.noArchive {
		st, err := store.Open(cfg.Output.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(ctx, runID, opts.now(), batch.Records, rep); err != nil {
			return err
		}
		log.Info().Str("run_id", runID).Str("db", cfg.Output.DBPath).Msg("run archived")
	}
	return nil
}

func explainFunc(ctx context.Context, cfg *types.Config) func(types.Alert) string {
	var e explain.Explainer = explain.NewTemplateExplainer()
	if cfg.Detection.EnableLocalLLM {
		e = explain.WithFallback(explain.NewLLMExplainer(cfg.Detection.LocalLLMUrl, cfg.Detection.LocalLLMModel))
	}
	return func(a types.Alert) string {
		text, err := e.Explain(ctx, a)
		if err != nil {
			return ""
		}
		return text
	}
}

func newBroker(cfg *types.Config) *notify.Broker {
	var sinks []notify.Sink
	if cfg.Notification.DiscordWebhook != "" {
		sinks = append(sinks, notify.NewDiscordSink(cfg.Notification.DiscordWebhook))
	}
	if s := cfg.Notification.Splunk; s.Enabled && s.URL != "" {
		sinks = append(sinks, notify.NewSplunkHEC(notify.SplunkConfig{
			URL:      s.URL,
			Token:    s.Token,
			Index:    s.Index,
			Insecure: s.Insecure,
		}))
	}
	return notify.NewBroker(cfg.Notification.MinRisk, sinks...)
}

func generateCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	n := fs.Int("n", 100, "Number of log lines")
	seed := fs.Int64("seed", 1, "Random seed")
	day := fs.String("day", "", "Day to cover (YYYY-MM-DD), default yesterday")
	out := fs.String("out", "", "Output file (default stdout)")
	fs.Parse(args)

	start := time.Now().UTC().AddDate(0, 0, -1)
	if *day != "" {
		t, err := time.Parse("2006-01-02", *day)
		if err != nil {
			return fmt.Errorf("invalid -day: %w", err)
		}
		start = t
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}

	lines := sample.New(*seed).Generate(*n, start)
	if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("failed to write sample: %w", err)
	}
	return nil
}

func historyCommand(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	limit := fs.Int("limit", 10, "Number of runs to list")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, ".env")
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Output.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tEVENTS\tSUSPICIOUS\tALERTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.TotalEvents, r.Suspicious, r.Alerts)
	}
	return tw.Flush()
}

func auditCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, ".env")
	if err != nil {
		return err
	}

	entries, err := audit.ReadAll(cfg.Output.AuditLogPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "%s %s [%s] %s\n", e.Time.Format(time.RFC3339), e.RunID, e.Alert.Risk, report.Sanitize(e.Alert.Summary()))
	}
	return nil
}

func serveCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to config file")
	port := fs.String("port", "", "Listen port (overrides config)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath, ".env")
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Dashboard.Port = *port
	}

	st, err := store.Open(cfg.Output.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := dashboard.NewServer(st, cfg.Dashboard.Port)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard: %w", err)
	}
	return srv.Start(ctx)
}
