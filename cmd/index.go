package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/db"
	"github.com/ziadkadry99/partsdesk/internal/indexer"
	"github.com/ziadkadry99/partsdesk/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the catalog into the semantic search index",
	Long: `Builds vector documents for every part, repair guide and article in the
catalog and persists them under data_dir/vectordb. Only records whose
content changed since the last run are re-embedded unless --full is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := zap.L()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		database, err := db.Open(cfg.SQLitePath())
		if err != nil {
			return err
		}
		defer database.Close()

		cat, _, closeCat, err := openCatalog(ctx, cfg, database)
		if err != nil {
			return err
		}
		defer closeCat()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return err
		}
		vectors, err := openVectors(ctx, cfg, embedder, logger)
		if err != nil {
			return err
		}

		reporter := progress.NewReporter("Indexing catalog")
		var (
			mu      sync.Mutex
			started bool
		)
		pipeline := indexer.NewPipeline(cat, vectors, cfg.DataDir,
			indexer.WithBatching(batchSize, concurrency),
			indexer.WithEmbedderName(embedder.Name()),
			indexer.WithLogger(logger),
			indexer.WithProgress(func(processed, total int, current string) {
				mu.Lock()
				defer mu.Unlock()
				if !started {
					reporter.Start(total)
					started = true
				}
				reporter.Update(processed, current)
			}))

		result, err := pipeline.Run(ctx, full)
		if started {
			reporter.Finish()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed %d documents, %d unchanged, %d failed in %s\n",
			result.DocumentsIndexed, result.DocumentsSkipped, result.DocumentsFailed, result.Duration.Round(time.Millisecond))
		if len(result.Rebuilt) > 0 {
			fmt.Fprintf(out, "Rebuilt: %v\n", result.Rebuilt)
		}
		fmt.Fprintf(out, "Vector store: %s (%d documents)\n", indexer.VectorDir(cfg.DataDir), vectors.Count())
		if result.DocumentsFailed > 0 {
			return eris.Errorf("%d documents failed to embed; rerun `partsdesk index` to retry them", result.DocumentsFailed)
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().Bool("full", false, "drop and re-embed every document")
	indexCmd.Flags().Int("concurrency", 2, "embedding batches in flight")
	indexCmd.Flags().Int("batch-size", 32, "documents per embedding request")
	rootCmd.AddCommand(indexCmd)
}
