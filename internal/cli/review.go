package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/textaudit/internal/cache"
	"github.com/ppiankov/textaudit/internal/classify"
	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/extract/textin"
	"github.com/ppiankov/textaudit/internal/llm"
	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/pipeline"
	"github.com/ppiankov/textaudit/internal/store"
	"github.com/ppiankov/textaudit/internal/util"
	"github.com/ppiankov/textaudit/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outPath     string
	outFormat   string
	batchMode   bool
	noCache     bool
	usePreviews bool
	noNotify    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review [data-dir]",
	Short: "Review every dossier folder under the data directory",
	Long: `Review walks the data directory, treats each subfolder as one dossier,
and for each dossier:
- Identifies the application form and the two attachments
- Extracts the declared fields from the form (TextIn)
- Renders the attachments and re-derives the verifiable fields
- Compares both sides and appends a pass/fail row to the report

Example:
  textaudit review
  textaudit review ./data --out review_results.xlsx
  textaudit review ./data --format sqlite --out review.db --batch
  textaudit review ./data --llm --llm-model qwen-max
  textaudit review ./data --llm-provider ollama --llm-model qwen2.5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVar(&outPath, "out", "", "report path (default: review_results.xlsx)")
	reviewCmd.Flags().StringVar(&outFormat, "format", "", "report format: xlsx, csv, sqlite (default: from --out extension)")
	reviewCmd.Flags().BoolVar(&batchMode, "batch", false, "write the report once at the end instead of after each dossier")
	reviewCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the extraction cache")
	reviewCmd.Flags().BoolVar(&noNotify, "quiet", false, "do not print a task update per dossier")
	addClassifyFlags(reviewCmd)
}

// addClassifyFlags registers the flags shared with the classify command
func addClassifyFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&usePreviews, "previews", true, "render unnamed files to look for the form's labels (--previews=false uses names only)")
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "ask an LLM when names and previews cannot identify the form")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider: openai, ollama (default: llm.provider or openai)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default: MODEL_NAME or qwen-max)")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.DataDir = args[0]
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	logger, err := util.NewLogger(cfg.Output.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.DataDir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Created data directory at %s. Please put your textbook folders here.\n", cfg.DataDir)
		return nil
	}

	dossiers, err := worker.DiscoverDossiers(cfg.DataDir)
	if err != nil {
		return err
	}
	if len(dossiers) == 0 {
		fmt.Fprintf(os.Stderr, "No dossiers found in %s\n", cfg.DataDir)
		return nil
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  textaudit review\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Data dir:   %s\n", cfg.DataDir)
	fmt.Fprintf(os.Stderr, "  Dossiers:   %d\n", len(dossiers))
	fmt.Fprintf(os.Stderr, "  Report:     %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "  Cache:      %v\n", cfg.Cache.Enabled)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:        %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	backend, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg, backend, logger)
	if err != nil {
		return err
	}

	notifier := pipeline.MultiNotifier{pipeline.NewLogNotifier(logger)}
	if cfg.Output.Notify {
		notifier = append(notifier, pipeline.NewConsoleNotifier(os.Stdout))
	}

	p := pipeline.New(backend,
		pipeline.WithClassifier(classifier),
		pipeline.WithNotifier(notifier),
		pipeline.WithLogger(logger),
		pipeline.WithMaxBytes(cfg.TextIn.MaxBytes))

	report, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = report.Close() }()

	agg := store.NewAggregator(report, store.WithBatch(cfg.Store.Batch), store.WithLogger(logger))

	var started time.Time
	processor := worker.NewBatchProcessor(p, agg,
		worker.WithLogger(logger),
		worker.OnStart(func(d model.Dossier) {
			started = time.Now()
			fmt.Fprintf(os.Stderr, "⚙️  Processing %s (%d files)\n", d.ID, len(d.Files))
		}),
		worker.OnDone(func(r worker.DossierResult) {
			elapsed := time.Since(started).Round(time.Millisecond)
			switch {
			case r.Error != nil || r.Record == nil:
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Dossier.ID, r.Error)
			case r.Record.Verdict == model.VerdictPass:
				fmt.Fprintf(os.Stderr, "✓ %s: %s (%v)\n", r.Dossier.ID, r.Record.Verdict.Label(), elapsed)
			default:
				fmt.Fprintf(os.Stderr, "✗ %s: %s (%v)\n", r.Dossier.ID, r.Record.Verdict.Label(), elapsed)
			}
		}))

	sum, runErr := processor.ProcessDossiers(ctx, dossiers)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Review Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d dossiers\n", sum.Total)
	fmt.Fprintf(os.Stderr, "  Passed:    %d\n", sum.Passed)
	fmt.Fprintf(os.Stderr, "  Failed:    %d\n", sum.Failed)
	if sum.Errors > 0 {
		fmt.Fprintf(os.Stderr, "  Errors:    %d\n", sum.Errors)
	}
	fmt.Fprintf(os.Stderr, "  Report:    %s (%d rows)\n", cfg.Store.Path, sum.Recorded)
	fmt.Fprintf(os.Stderr, "\n")

	if errors.Is(runErr, store.ErrSchemaMismatch) {
		return fmt.Errorf("%w\nthe existing report has columns this run does not produce; choose another --out path", runErr)
	}
	return runErr
}

// applyFlags lets explicitly set flags win over file and environment
func applyFlags(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Store.Path = outPath
		if !flags.Changed("format") {
			cfg.Store.Format = ""
		}
	}
	if flags.Changed("format") {
		cfg.Store.Format = outFormat
	}
	if flags.Changed("batch") {
		cfg.Store.Batch = batchMode
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("quiet") {
		cfg.Output.Notify = !noNotify
	}
	if flags.Changed("previews") {
		cfg.Classify.UsePreviews = usePreviews
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	// The llm section of the config stays in force unless a flag names a provider
	switch {
	case flags.Changed("llm") && !llmEnabled:
		cfg.LLM.Provider = ""
	case flags.Changed("llm-provider"):
		cfg.LLM.Provider = llmProvider
	case flags.Changed("llm") && cfg.LLM.Provider == "":
		cfg.LLM.Provider = "openai"
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}

	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai", "qwen", "dashscope":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = llm.DefaultOpenAIModel
		}
	}
	return nil
}

// newBackend wires the TextIn client behind the limiter and, when enabled, the cache
func newBackend(cfg *model.Config, logger *zap.Logger) (extract.Backend, error) {
	limiter := worker.NewLimiter(cfg.TextIn.RequestsPerSecond, cfg.TextIn.BurstSize)
	client, err := textin.NewClient(cfg.TextIn, textin.WithLimiter(limiter), textin.WithLogger(logger))
	if err != nil {
		if errors.Is(err, textin.ErrMissingCredentials) {
			return nil, fmt.Errorf("%w: set TEXTIN_APP_ID and TEXTIN_SECRET_CODE", err)
		}
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return client, nil
	}
	c := cache.FromConfig(cfg.Cache)
	if c == nil {
		return client, nil
	}
	return extract.NewCached(client, c, 0), nil
}

// newClassifier adds the preview scorer and the LLM advisor when configured
func newClassifier(cfg *model.Config, backend extract.Backend, logger *zap.Logger) (*classify.Classifier, error) {
	opts := []classify.Option{
		classify.WithMinFormLabels(cfg.Classify.MinFormLabels),
		classify.WithLogger(logger),
	}
	if cfg.Classify.UsePreviews {
		opts = append(opts, classify.WithPreviewer(
			pipeline.NewRenderPreviewer(backend, cfg.TextIn.MaxBytes, cfg.Classify.PreviewChars)))
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.TextIn))
	if err != nil {
		return nil, err
	}
	if provider != nil {
		opts = append(opts, classify.WithAdvisor(llm.NewRoleAdvisor(provider, logger)))
	}
	return classify.New(opts...), nil
}
