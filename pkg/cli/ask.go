package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a single question and print the full result as JSON",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)

			question := c.Args().First()
			if question == "" {
				return goerr.New("question is required")
			}

			uc, closer, err := cfg.newAgent(ctx, logging.From(ctx))
			if err != nil {
				return err
			}
			defer closer()

			sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			sp.Suffix = " thinking..."
			sp.Start()
			result := uc.Answer(ctx, question)
			sp.Stop()

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
