package cli

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	// Pick up GEMINI_API_KEY and friends from a local .env if present.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "burrow",
		Usage: "Proactive Q&A agent over a chat message corpus",
		Commands: []*cli.Command{
			fetchCommand(),
			indexCommand(),
			askCommand(),
			serveCommand(),
			evalCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
