package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/usecase/ingest"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func fetchCommand() *cli.Command {
	var cfg config

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "source-url",
			Aliases:     []string{"u"},
			Usage:       "Paginated message source endpoint",
			Sources:     cli.EnvVars("BURROW_SOURCE_URL"),
			Destination: &cfg.sourceURL,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Usage:       "Records requested per page",
			Value:       500,
			Sources:     cli.EnvVars("BURROW_PAGE_SIZE"),
			Destination: &cfg.pageSize,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch all messages from the source and build the message store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			source := adapter.NewHTTPSource(cfg.sourceURL)
			uc := ingest.New(source, ingest.WithPageSize(int(cfg.pageSize)))

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " fetching messages..."
			sp.Start()
			result, err := uc.Build(ctx, cfg.storePath)
			sp.Stop()
			if err != nil {
				return goerr.Wrap(err, "store build failed")
			}

			fmt.Fprintf(c.Root().Writer, "Store built: %s (%d rows, corpus version %s)\n",
				cfg.storePath, result.Rows, result.CorpusVersion)
			if result.Partial {
				fmt.Fprintf(c.Root().Writer, "Note: the source stopped early (quota); the store holds a partial corpus.\n")
			}

			return nil
		},
	}
}
