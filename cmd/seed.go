package cmd

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the reference catalog into the local SQLite database",
	Long: `Upserts the reference parts, models, brand relationships, repair guides and
articles into the sqlite catalog. Running it again is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Catalog.Driver != "sqlite" {
			return eris.Errorf("seed writes the sqlite catalog; catalog.driver is %q", cfg.Catalog.Driver)
		}

		database, err := db.Open(cfg.SQLitePath())
		if err != nil {
			return err
		}
		defer database.Close()

		if err := catalog.Seed(context.Background(), catalog.NewSQLiteStore(database)); err != nil {
			return eris.Wrap(err, "seeding catalog")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s: %d parts, %d models, %d brand relationships, %d repairs, %d articles\n",
			database.Path(), len(catalog.SeedParts()), len(catalog.SeedModels()), len(catalog.SeedBrandRelationships()),
			len(catalog.SeedRepairs()), len(catalog.SeedArticles()))
		fmt.Fprintln(cmd.OutOrStdout(), "Run `partsdesk index` to build the semantic search index.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
