package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dyluth/gather/internal/printer"
	"github.com/dyluth/gather/internal/render"
	"github.com/spf13/cobra"
)

var (
	suggestUser    string
	suggestEmail   string
	rankingsOut    string
	categoriesLang string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest NAME",
	Short: "Vote for a new category",
	Long: `Record a user's vote for a category that is not in the catalog yet.
Voting again for the same name (case and accents ignored) replaces the
earlier vote.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Show category suggestions ranked by votes",
	RunE:  runRankings,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage the category catalog",
}

var categoriesSeedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Load categories from a YAML catalog",
	Long: `Upsert every category of a YAML catalog:

  categories:
    - id: music
      color: "#E91E63"
      translations: {en: Music, es: Música}`,
	Args: cobra.ExactArgs(1),
	RunE: runCategoriesSeed,
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog categories",
	RunE:  runCategoriesList,
}

func init() {
	suggestCmd.Flags().StringVarP(&suggestUser, "user", "u", "", "Voting user id")
	suggestCmd.Flags().StringVar(&suggestEmail, "email", "", "Voter email (default: profile email)")

	rankingsCmd.Flags().StringVarP(&rankingsOut, "output", "o", "default", "Output format: default or jsonl")

	categoriesListCmd.Flags().StringVar(&categoriesLang, "lang", "en", "Display language")

	categoriesCmd.AddCommand(categoriesSeedCmd, categoriesListCmd)
	rootCmd.AddCommand(suggestCmd, rankingsCmd, categoriesCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if err := requireUser(suggestUser); err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	email := suggestEmail
	if email == "" {
		if p, err := a.profiles.Get(ctx, suggestUser); err == nil {
			email = p.Email
		}
	}

	slug, err := a.votes.Submit(ctx, args[0], suggestUser, email)
	if err != nil {
		return storeError("submit suggestion", err)
	}
	printer.Success("vote recorded for %q (%s)\n", args[0], slug)
	return nil
}

func runRankings(cmd *cobra.Command, args []string) error {
	format, err := render.ParseOutputFormat(rankingsOut)
	if err != nil {
		return printer.Error("invalid output format", err.Error(), nil)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	rankings, err := a.votes.Aggregate(ctx)
	if err != nil {
		return storeError("rank suggestions", err)
	}
	if format == render.OutputFormatJSONL {
		return render.JSONL(printer.Out(), rankings)
	}
	return render.RankingsTable(printer.Out(), rankings)
}

func runCategoriesSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := seedCatalogFile(ctx, a, args[0]); err != nil {
		return printer.Error("failed to seed catalog", err.Error(), nil)
	}
	return nil
}

func seedCatalogFile(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	n, err := a.catalog.Seed(ctx, f)
	if err != nil {
		return err
	}
	printer.Success("seeded %d categories from %s\n", n, path)
	return nil
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cliMode)
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.catalog.List(ctx)
	if err != nil {
		return storeError("list categories", err)
	}
	return render.CategoriesTable(printer.Out(), categories, categoriesLang)
}
