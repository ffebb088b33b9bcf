package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

type evalCase struct {
	Question     string `yaml:"question"`
	GoldenAnswer string `yaml:"golden_answer"`
}

func evalCommand() *cli.Command {
	var (
		cfg      config
		evalFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to the YAML golden evaluation set",
			Value:       "eval.yml",
			Sources:     cli.EnvVars("BURROW_EVAL_FILE"),
			Destination: &evalFile,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "eval",
		Usage: "Run the golden evaluation set against the agent and report the pass rate",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogging(ctx)
			logger := logging.From(ctx)

			data, err := os.ReadFile(evalFile)
			if err != nil {
				return goerr.Wrap(err, "failed to read evaluation file", goerr.V("path", evalFile))
			}

			var cases []evalCase
			if err := yaml.Unmarshal(data, &cases); err != nil {
				return goerr.Wrap(err, "failed to parse evaluation file", goerr.V("path", evalFile))
			}
			if len(cases) == 0 {
				return goerr.New("evaluation file has no cases", goerr.V("path", evalFile))
			}

			uc, closer, err := cfg.newAgent(ctx, logger)
			if err != nil {
				return err
			}
			defer closer()

			score := 0
			for i, tc := range cases {
				result := uc.Answer(ctx, tc.Question)

				// Simple contains check is enough for golden answers.
				pass := strings.Contains(strings.ToLower(result.Answer), strings.ToLower(tc.GoldenAnswer))
				if pass {
					score++
				}

				fmt.Fprintf(c.Root().Writer, "[%d/%d] %s\n  expected: %s\n  agent:    %s\n  result:   %s\n",
					i+1, len(cases), tc.Question, tc.GoldenAnswer, result.Answer, passLabel(pass))
			}

			rate := float64(score) / float64(len(cases)) * 100
			fmt.Fprintf(c.Root().Writer, "\nFinal score: %d/%d (%.2f%%)\n", score, len(cases), rate)

			return nil
		},
	}
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
