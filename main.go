package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/NaNostyle/pc-component-mixer-ai/config"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/aggregate"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/annotate"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/llm"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/market"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/notify"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/output"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/plan"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/source"
	"github.com/NaNostyle/pc-component-mixer-ai/internal/storage"
	"github.com/lithammer/dedent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type cliFlags struct {
	components string
	keywords   string
	minPrice   string
	maxPrice   string
	aiQuery    string
	aiAnalyze  bool
	maxAnalyze int
	outputPath string
	notify     bool
	verbose    bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.components, "components", "", "comma-separated component types (e.g. cpu,graphic_card)")
	flag.StringVar(&f.components, "c", "", "shorthand for -components")
	flag.StringVar(&f.keywords, "keywords", "", "comma-separated search keywords")
	flag.StringVar(&f.keywords, "k", "", "shorthand for -keywords")
	flag.StringVar(&f.minPrice, "min-price", "", "minimum price in euros")
	flag.StringVar(&f.maxPrice, "max-price", "", "maximum price in euros")
	flag.StringVar(&f.aiQuery, "ai-query", "", "free-form buying intent, planned into a query by AI")
	flag.StringVar(&f.aiQuery, "q", "", "shorthand for -ai-query")
	flag.BoolVar(&f.aiAnalyze, "ai-analyze", false, "run AI deal analysis over the results")
	flag.BoolVar(&f.aiAnalyze, "a", false, "shorthand for -ai-analyze")
	flag.IntVar(&f.maxAnalyze, "max-analyze", annotate.DefaultMaxAnalyze, "maximum listings to analyze per run")
	flag.StringVar(&f.outputPath, "output", "", "output file path (default: generated pc_mix_*.json name)")
	flag.StringVar(&f.outputPath, "o", "", "shorthand for -output")
	flag.BoolVar(&f.notify, "notify", false, "send top deals to Telegram")
	flag.BoolVar(&f.verbose, "verbose", false, "enable debug logging")
	flag.Parse()
	return f
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()
	f := parseFlags()

	if f.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(f); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(f cliFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(config.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	needsAI := f.aiQuery != "" || f.aiAnalyze
	var gemini *llm.GeminiClient
	if needsAI {
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for -ai-query and -ai-analyze")
		}
		gemini, err = llm.NewGeminiClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize gemini client: %w", err)
		}
	}

	var totalUsage llm.Usage

	// Build the query spec, either from the AI planner or from flags.
	var spec market.QuerySpec
	var planReasoning string
	var planFallback bool
	if f.aiQuery != "" {
		p := plan.NewPlanner(gemini).Plan(ctx, f.aiQuery)
		spec = p.Spec
		planReasoning = p.Reasoning
		planFallback = p.Fallback
		totalUsage.Add(p.Usage)
	} else {
		spec, err = specFromFlags(f)
		if err != nil {
			return err
		}
	}

	result := aggregate.New(source.DefaultAdapters()).Aggregate(ctx, spec)

	var stats annotate.Stats
	if f.aiAnalyze && len(result.Listings) > 0 {
		analyzer := llm.NewCachedAnalyzer(gemini, store)
		budget := annotate.NewBudget(f.maxAnalyze)
		stats = annotate.New(analyzer).Annotate(ctx, result.Listings, budget)
		totalUsage.Add(stats.Usage)
	}

	now := time.Now()
	path := f.outputPath
	if path == "" {
		path = output.Filename(spec, f.aiAnalyze, now)
	}
	report := output.Report{
		GeneratedAt:    now.UTC(),
		Intent:         f.aiQuery,
		Query:          spec,
		PlanReasoning:  planReasoning,
		PlanFallback:   planFallback,
		ListingCount:   len(result.Listings),
		AnnotatedCount: stats.Annotated,
		SourceFailures: result.Diagnostics.DescribeFailures(),
		Listings:       result.Listings,
	}
	if err := output.WriteReport(path, report); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("report written")

	if f.notify {
		notifier, err := notify.NewFromEnv()
		if err != nil {
			return err
		}
		if notifier == nil {
			log.Warn().Msg("notify requested but TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID are not set")
		} else if err := notifier.SendTopDeals(intentLabel(f, spec), result.Listings); err != nil {
			log.Error().Err(err).Msg("failed to send telegram notification")
		}
	}

	specJSON, _ := json.Marshal(spec)
	if err := store.SaveRun(storage.RunRecord{
		Intent:         f.aiQuery,
		SpecJSON:       string(specJSON),
		ListingCount:   len(result.Listings),
		AnnotatedCount: stats.Annotated,
		CostUSD:        totalUsage.CostUSD,
		OutputPath:     path,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to record run")
	}

	printSummary(report, stats, totalUsage, path)
	return nil
}

// specFromFlags builds a query spec from the manual CLI flags.
func specFromFlags(f cliFlags) (market.QuerySpec, error) {
	var spec market.QuerySpec

	for _, name := range splitList(f.components) {
		t, ok := market.ParseComponentType(name)
		if !ok {
			return market.QuerySpec{}, fmt.Errorf("unknown component type %q (known: %s)", name, knownComponents())
		}
		spec.Components = append(spec.Components, t)
	}
	spec.Keywords = splitList(f.keywords)

	if f.minPrice != "" {
		d, err := decimal.NewFromString(f.minPrice)
		if err != nil {
			return market.QuerySpec{}, fmt.Errorf("invalid -min-price %q: %w", f.minPrice, err)
		}
		spec.MinPrice = &d
	}
	if f.maxPrice != "" {
		d, err := decimal.NewFromString(f.maxPrice)
		if err != nil {
			return market.QuerySpec{}, fmt.Errorf("invalid -max-price %q: %w", f.maxPrice, err)
		}
		spec.MaxPrice = &d
	}

	if err := spec.Validate(); err != nil {
		return market.QuerySpec{}, err
	}
	return spec, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func knownComponents() string {
	var names []string
	for _, t := range market.AllComponentTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func intentLabel(f cliFlags, spec market.QuerySpec) string {
	if f.aiQuery != "" {
		return f.aiQuery
	}
	return strings.Join(spec.Keywords, " ")
}

func printSummary(report output.Report, stats annotate.Stats, usage llm.Usage, path string) {
	goodDeals := 0
	scoreSum := 0
	var best []market.Listing
	for _, l := range report.Listings {
		if l.Analysis == nil {
			continue
		}
		scoreSum += l.Analysis.DealScore
		if l.Analysis.IsGoodDeal {
			goodDeals++
			best = append(best, l)
		}
	}

	fmt.Println(strings.TrimSpace(dedent.Dedent(fmt.Sprintf(`
		Listings found:   %d
		Analyzed:         %d (%d failed)
		Good deals:       %d
		AI cost:          $%.4f
		Report:           %s
	`, report.ListingCount, stats.Annotated, stats.Failed, goodDeals, usage.CostUSD, path))))

	if stats.Annotated > 0 {
		fmt.Printf("Average score:    %.1f/10\n", float64(scoreSum)/float64(stats.Annotated))
	}
	sort.SliceStable(best, func(i, j int) bool {
		return best[i].Analysis.DealScore > best[j].Analysis.DealScore
	})
	for i, l := range best {
		if i >= 3 {
			break
		}
		price := "price unknown"
		if l.PriceKnown {
			price = l.Price.String() + " " + l.Currency
		}
		fmt.Printf("  %d. %s (%s) score %d/10: %s\n", i+1, l.Name, price, l.Analysis.DealScore, snippet(l.Analysis.Reasoning))
	}
}

func snippet(s string) string {
	const maxLen = 120
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
