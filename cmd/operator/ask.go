package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/lens-assistant/internal/app"
	"github.com/easeaico/lens-assistant/internal/config"
	"github.com/easeaico/lens-assistant/internal/pipeline"
	"github.com/easeaico/lens-assistant/internal/stream"
	"github.com/easeaico/lens-assistant/internal/types"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run one customer turn and stream the answer to stdout",
	Example: `  operator ask "Bonjour, SPH -2.50 CYL -1.25 AXE 180, quel verre ?"
  operator ask --session 6f1c... "Et en photochromique ?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "continue an existing session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return withGuidance(err)
	}
	defer a.Close()

	turn, err := a.Service.Prepare(ctx, pipeline.TurnRequest{
		SessionID: askSession,
		Messages:  []pipeline.Message{{Role: types.RoleUser, Content: strings.Join(args, " ")}},
	})
	if err != nil {
		return withGuidance(err)
	}

	out := cmd.OutOrStdout()
	res, err := a.Service.Stream(ctx, turn, stream.SinkFunc(func(fragment string) error {
		_, err := fmt.Fprint(out, fragment)
		return err
	}))
	if err != nil {
		return withGuidance(err)
	}

	cmd.PrintErrf("\n\nsession %s | language %s | %d catalog hit(s)\n",
		res.SessionID, res.Language, len(res.CatalogHits))
	return nil
}

func withGuidance(err error) error {
	if g := types.Guidance(err); g != "" {
		return fmt.Errorf("%w\nhint: %s", err, g)
	}
	return err
}
