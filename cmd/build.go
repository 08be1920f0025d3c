package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"

	"github.com/wundergraph/graphql-compiler/pkg/compiler"
	"github.com/wundergraph/graphql-compiler/pkg/config"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

var errBuildFailed = errors.New("build failed")

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build compiles every project once",
	Long: `build discovers the schema and document files of every project, compiles them and
writes the artifacts. It exits with a non zero status if any project has errors.`,
	Example: "gqlc build --config ./gqlc.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, sync, err := logger()
		if err != nil {
			return err
		}
		defer sync()

		state, err := compiler.New(cfg, compiler.WithLogger(logger))
		if err != nil {
			return err
		}
		loadSnapshots(cmd.Context(), state, cfg, logger)
		results, err := state.Build(cmd.Context())
		if err != nil {
			return err
		}
		failed := printResults(cmd.OutOrStdout(), state, results)
		saveSnapshots(state, cfg, logger)
		if failed {
			return errBuildFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

// printResults writes the diagnostics of every result and reports whether any project failed.
func printResults(out io.Writer, state *compiler.CompilerState, results []compiler.ProjectGenerationResult) bool {
	failed := false
	for _, result := range results {
		if result.HasErrors() {
			failed = true
		}
		var sources position.Sources
		if generation, _ := state.Snapshot(result.Project); generation != nil {
			sources = generation.Sources
		}
		if result.Fatal != nil {
			fmt.Fprintf(out, "%s: %s\n", result.Project, result.Fatal)
		}
		for _, diagnostic := range result.Diagnostics {
			fmt.Fprintf(out, "%s: %s\n", result.Project, diagnostic.Render(sources))
		}
		fmt.Fprintf(out, "%s: %s, %d written, %d deleted, %d errors, %d warnings in %s\n",
			result.Project,
			result.State,
			len(result.Written),
			len(result.Deleted),
			result.Diagnostics.Count(operationreport.SeverityError),
			result.Diagnostics.Count(operationreport.SeverityWarning),
			result.Duration,
		)
	}
	return failed
}

func loadSnapshots(ctx context.Context, state *compiler.CompilerState, cfg *config.Config, logger log.Logger) {
	for _, project := range cfg.Projects {
		if project.Snapshot == "" {
			continue
		}
		file, err := os.Open(project.Snapshot)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			logger.Warn("snapshot.load", log.String("project", project.Name), log.Error(err))
			continue
		}
		err = state.LoadSnapshot(ctx, project.Name, file)
		_ = file.Close()
		if err != nil {
			logger.Warn("snapshot.load", log.String("project", project.Name), log.Error(err))
		}
	}
}

func saveSnapshots(state *compiler.CompilerState, cfg *config.Config, logger log.Logger) {
	for _, project := range cfg.Projects {
		if project.Snapshot == "" {
			continue
		}
		if err := saveSnapshot(state, project.Name, project.Snapshot); err != nil {
			logger.Error("snapshot.save", log.String("project", project.Name), log.Error(err))
		}
	}
}

func saveSnapshot(state *compiler.CompilerState, project, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := state.SaveSnapshot(project, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
