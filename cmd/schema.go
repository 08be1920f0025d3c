package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wundergraph/graphql-compiler/pkg/compiler"
	"github.com/wundergraph/graphql-compiler/pkg/config"
	"github.com/wundergraph/graphql-compiler/pkg/pool"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [project]",
	Short: "schema validates a project schema and prints its type fingerprints",
	Long: `schema loads the schema and client extensions of a project and prints one line per type
with the fingerprint used to find the definitions a schema change affects.`,
	Example: "gqlc schema web",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := &cfg.Projects[0]
		if len(args) == 1 {
			var ok bool
			if project, ok = cfg.Project(args[0]); !ok {
				return fmt.Errorf("%w: %s", compiler.ErrUnknownProject, args[0])
			}
		}

		s, err := loadSchema(project, cfg.Root)
		if err != nil {
			var loadErr *schema.LoadError
			if errors.As(err, &loadErr) {
				for _, diagnostic := range loadErr.Diagnostics {
					fmt.Fprintln(cmd.ErrOrStderr(), diagnostic.Render(nil))
				}
			}
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range s.TypeNames() {
			fmt.Fprintf(out, "%s %s\n", pool.Hex(s.TypeFingerprint(name)), name)
		}
		fmt.Fprintf(out, "%s <structure>\n", pool.Hex(s.StructureFingerprint()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func loadSchema(project *config.Project, root string) (*schema.ParsedSchema, error) {
	paths, err := compiler.Discover(project, root)
	if err != nil {
		return nil, err
	}
	var schemaSources, extensionSources []schema.Source
	for _, path := range paths {
		kind := compiler.Classify(project, root, path)
		if kind != compiler.FileKindSchema && kind != compiler.FileKindExtension {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		source := schema.Source{Name: path, Input: string(data)}
		if kind == compiler.FileKindSchema {
			schemaSources = append(schemaSources, source)
		} else {
			extensionSources = append(extensionSources, source)
		}
	}
	return schema.Load(schemaSources, extensionSources)
}
