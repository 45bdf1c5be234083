package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/config"
	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/ability"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/storage"
)

// version is set via ldflags during build.
var version = "dev"

// errWarnings is returned by --strict when any template compiled with
// warnings.
var errWarnings = errors.New("content compiled with warnings")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardc",
		Short:         "Compile and import duelcore card content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd(), newTextCmd(), newImportCmd(), newVersionCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	var (
		asJSON bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "compile [content.yaml]",
		Short: "Compile every template and print the parsed abilities",
		Long: `Loads a YAML content file, compiles the rules text of every template
and prints the resulting trigger and actions. Text the compiler does not
understand is reported as a warning; it never fails compilation unless
--strict is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := cards.LoadFile(args[0])
			if err != nil {
				return err
			}
			catalog := game.CatalogFor(content.Templates)
			entries := make([]ability.Entry, 0, catalog.Len())
			warned := 0
			for _, id := range catalog.IDs() {
				e, _ := catalog.Lookup(id)
				entries = append(entries, e)
				if len(e.Warnings) > 0 {
					warned++
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return err
				}
			} else {
				for _, e := range entries {
					printEntry(out, e)
				}
				fmt.Fprintf(out, "%d templates, %d with warnings, %d decks\n", len(entries), warned, len(content.Decks))
			}
			if err := game.CheckTokens(content.Templates, catalog); err != nil {
				return err
			}
			if strict && warned > 0 {
				return errWarnings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print compiled entries as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any template has warnings")
	return cmd
}

func newTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text \"<rules text>\"",
		Short: "Compile a single piece of rules text",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			text := strings.Join(args, " ")
			ab, warnings := ability.CompileWithWarnings(text)
			printEntry(cmd.OutOrStdout(), ability.Entry{Text: text, Ability: ab, Warnings: warnings})
		},
	}
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [content.yaml]",
		Short: "Upsert card templates into PostgreSQL",
		Long: `Loads and validates a YAML content file, then writes its templates into
the card_templates table in batches. The database URL comes from
--database-url or DUELCORE_STORAGE_DATABASE_URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := viper.GetString("storage.database_url")
			if url == "" {
				return errors.New("no database URL: set --database-url or DUELCORE_STORAGE_DATABASE_URL")
			}
			content, err := cards.LoadFile(args[0])
			if err != nil {
				return err
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := storage.NewPostgres(ctx, url, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			n, err := store.ImportTemplates(ctx, content.SortedTemplates())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d templates\n", n)
			return nil
		},
	}
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("storage.database_url", cmd.Flags().Lookup("database-url"))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cardc version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardc version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func printEntry(w io.Writer, e ability.Entry) {
	if e.TemplateID != "" {
		fmt.Fprintf(w, "%s\n", e.TemplateID)
	}
	fmt.Fprintf(w, "  text:     %q\n", e.Text)
	printAbility(w, "ability", e.Ability)
	if e.Reversed != nil {
		printAbility(w, "reversed", *e.Reversed)
	}
	for _, warning := range e.Warnings {
		fmt.Fprintf(w, "  warning:  %s\n", warning)
	}
}

func printAbility(w io.Writer, label string, ab ability.ParsedAbility) {
	if ab.Empty() {
		fmt.Fprintf(w, "  %-9s (none)\n", label+":")
		return
	}
	compound := ""
	if ab.IsCompound {
		compound = " compound"
	}
	fmt.Fprintf(w, "  %-9s %s%s\n", label+":", ab.Trigger, compound)
	for _, a := range ab.Actions {
		fmt.Fprintf(w, "    - %s\n", a)
	}
}
