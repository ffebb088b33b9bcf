package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/burrow/pkg/usecase/indexer"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func indexCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "batch-size",
			Usage:       "Rows embedded per request",
			Value:       64,
			Sources:     cli.EnvVars("BURROW_BATCH_SIZE"),
			Destination: &cfg.batchSize,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "index",
		Usage: "Embed every store row and build the vector index",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			repo, err := cfg.newRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to create Gemini client")
			}

			uc := indexer.New(gemini,
				indexer.WithBatchSize(int(cfg.batchSize)),
				indexer.WithEmbeddingModelName(gemini.EmbeddingModel()),
			)

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " embedding corpus..."
			sp.Start()
			result, err := uc.Build(ctx, repo, cfg.indexPath)
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "index build failed")
			}

			fmt.Fprintf(c.Root().Writer, "Index built: %s (%d vectors, dim %d, corpus version %s)\n",
				cfg.indexPath, result.Rows, result.Dim, result.CorpusVersion)

			return nil
		},
	}
}
