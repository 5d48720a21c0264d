package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/neurodesk/hbars/pkg/handlebars"
	"github.com/neurodesk/hbars/pkg/prompthelpers"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	contextFile string
	partialsDir string
	strict      bool
	noEscape    bool
	plainOnly   bool
)

var rootCmd = cobra.Command{
	Use:   "hbars",
	Short: "Render and inspect prompt templates",
}

// newEngine builds an engine configured from the command line flags, with
// the prompt helpers installed unless --plain was given.
func newEngine() *handlebars.Engine {
	eng := handlebars.New()
	if !plainOnly {
		prompthelpers.Register(eng)
	}
	eng.Strict = strict
	eng.EscapeHTML = !noEscape
	if partialsDir != "" {
		eng.SetLoader(handlebars.NewDirLoader(os.DirFS(partialsDir)))
	}
	return eng
}

func loadContext() (any, error) {
	if contextFile == "" {
		return nil, nil
	}
	b, err := os.ReadFile(contextFile)
	if err != nil {
		return nil, err
	}
	// yaml.v3 parses JSON as well, so one flag covers both.
	var ctx any
	if err := yaml.Unmarshal(b, &ctx); err != nil {
		return nil, fmt.Errorf("decoding context file: %w", err)
	}
	return ctx, nil
}

var renderCmd = cobra.Command{
	Use:   "render <template>",
	Short: "Render a template file against a YAML or JSON context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ctx, err := loadContext()
		if err != nil {
			return err
		}
		out, err := newEngine().Render(string(src), ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var astCmd = cobra.Command{
	Use:   "ast <template>",
	Short: "Print the parsed template tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		prog, err := handlebars.Parse(string(src))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), handlebars.Pretty(prog))
		return nil
	},
}

var checkCmd = cobra.Command{
	Use:   "check <template>...",
	Short: "Parse templates and report syntax errors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := handlebars.Parse(string(src)); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d templates failed to parse", failed, len(args))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&contextFile, "context", "c", "", "YAML or JSON file holding the template context")
	renderCmd.Flags().StringVar(&partialsDir, "partials-dir", "", "Directory of partial templates")
	renderCmd.Flags().BoolVar(&strict, "strict", false, "Fail on unresolved paths")
	renderCmd.Flags().BoolVar(&noEscape, "no-escape", false, "Disable HTML escaping of {{...}} output")
	renderCmd.Flags().BoolVar(&plainOnly, "plain", false, "Skip the prompt helpers, builtins only")

	rootCmd.AddCommand(&renderCmd)
	rootCmd.AddCommand(&astCmd)
	rootCmd.AddCommand(&checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
