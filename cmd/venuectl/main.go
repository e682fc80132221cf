package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuerank/internal/app"
	"github.com/kailas-cloud/venuerank/internal/config"
	"github.com/kailas-cloud/venuerank/internal/domain"
	logpkg "github.com/kailas-cloud/venuerank/internal/logger"
	healthuc "github.com/kailas-cloud/venuerank/internal/usecase/health"
	"github.com/kailas-cloud/venuerank/internal/usecase/recommend"
	"github.com/kailas-cloud/venuerank/internal/version"
)

var (
	env       string
	logLevel  string
	timeout   time.Duration
	region    string
	people    int
	enhance   bool
	nResults  int
	minSim    float64
	randomCat []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "venuectl",
		Short:         "Run the venue recommendation engine from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})
	rootCmd.AddCommand(suggestCmd(), recommendCmd(), healthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <category> <keywords>",
		Short: "Print the hybrid ranking for one category",
		Example: `  venuectl suggest 음식점 "김치찌개, 조용한" --region 마포구
  venuectl suggest 카페 라떼 -n 5 --min-similarity 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := recommend.SuggestRequest{
				Category:       args[0],
				Keyword:        args[1],
				Region:         region,
				PeopleCount:    people,
				RequestedCount: nResults,
				Enhance:        enhance,
			}
			if cmd.Flags().Changed("min-similarity") {
				req.MinSimilarity = &minSim
			}
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, err := a.Recommender.Suggest(ctx, req)
				if err != nil {
					return err
				}
				printJSON(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&region, "region", "r", "", "region filter")
	cmd.Flags().IntVarP(&people, "people", "p", 0, "party size")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "rewrite keywords with the language model")
	cmd.Flags().IntVarP(&nResults, "n-results", "n", 0, "requested result count (0 = configured default)")
	cmd.Flags().Float64Var(&minSim, "min-similarity", 0, "similarity floor (default from config)")
	return cmd
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <category=keyword,keyword>...",
		Short: "Run the full recommendation for one or more categories",
		Example: `  venuectl recommend "음식점=김치찌개,조용한" "카페=라떼" --region 마포구 -p 2
  venuectl recommend "콘텐츠=" --random 콘텐츠`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := parseTags(args)
			if err != nil {
				return err
			}
			req := recommend.Request{
				Region:           region,
				PeopleCount:      people,
				CollectedTags:    tags,
				RandomCategories: randomCat,
			}
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Recommender.Recommend(ctx, req)
				if err != nil {
					return err
				}
				printJSON(res)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&region, "region", "r", "", "region filter")
	cmd.Flags().IntVarP(&people, "people", "p", 0, "party size")
	cmd.Flags().StringSliceVar(&randomCat, "random", nil, "categories answered by random sampling")
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check every configured dependency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App) error {
				report := a.Health.Check(ctx)
				printJSON(report)
				if report.Status == healthuc.Unhealthy {
					return fmt.Errorf("status %s", report.Status)
				}
				return nil
			})
		},
	}
}

// parseTags turns "category=kw1,kw2" arguments into collected tags.
func parseTags(args []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(args))
	for _, arg := range args {
		category, keywords, _ := strings.Cut(arg, "=")
		category = strings.TrimSpace(category)
		if domain.CategoryCode(category) == "" {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		var kws []string
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		tags[category] = append(tags[category], kws...)
	}
	return tags, nil
}

func withEngine(parent context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger(env, logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, usage := domain.NewContextWithUsage(ctx)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(ctx, a)
	embedding, judge := usage.Snapshot()
	logger.Info("Usage", zap.Int("embedding_tokens", embedding), zap.Int("judge_tokens", judge))
	return err
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
