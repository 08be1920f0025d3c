package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	log "github.com/jensneuse/abstractlogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/graphql-compiler/pkg/compiler"
	"github.com/wundergraph/graphql-compiler/pkg/watcher"
)

var watchMetricsAddr string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "watch compiles every project and recompiles on file changes",
	Long: `watch builds every project once and then keeps watching the config root. Changed files
are collected into batches and only the definitions affected by a batch are compiled again.
Snapshots are loaded on start and saved on exit when configured.`,
	Example: "gqlc watch --metrics-addr localhost:9090",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, sync, err := logger()
		if err != nil {
			return err
		}
		defer sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		metrics := compiler.NewMetrics()
		registry := prometheus.NewRegistry()
		metrics.MustRegister(registry)

		state, err := compiler.New(cfg, compiler.WithLogger(logger), compiler.WithMetrics(metrics))
		if err != nil {
			return err
		}
		loadSnapshots(ctx, state, cfg, logger)
		defer saveSnapshots(state, cfg, logger)

		results, err := state.Build(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printResults(out, state, results)

		outputs := make([]string, 0, len(cfg.Projects))
		for _, project := range cfg.Projects {
			outputs = append(outputs, project.Output)
		}
		w, err := watcher.New(cfg.Root,
			watcher.WithDebounce(cfg.Debounce),
			watcher.WithLogger(logger),
			watcher.WithIgnore(func(path string) bool {
				return withinAny(outputs, path)
			}),
		)
		if err != nil {
			return err
		}
		runner := compiler.NewRunner(state,
			compiler.WithRunnerLogger(logger),
			compiler.WithResultHandler(func(results []compiler.ProjectGenerationResult) {
				printResults(out, state, results)
			}),
		)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return w.Run(ctx, runner.Submit)
		})
		g.Go(func() error {
			return runner.Run(ctx)
		})
		if watchMetricsAddr != "" {
			server := &http.Server{
				Addr:              watchMetricsAddr,
				Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				logger.Info("metrics.listen", log.String("addr", watchMetricsAddr))
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Shutdown(shutdown)
			})
		}

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func withinAny(dirs []string, path string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
