package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/tictactoe-bot/internal"
	"github.com/rocketscienceinc/tictactoe-bot/internal/config"
)

func Serve() *cobra.Command {
	var (
		configPath string
		botMode    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the bot",
		Long: heredoc.Doc(`
			serve loads the configuration and starts the bot.

			In webhook mode the chat platform pushes updates to the webhook path
			and replies go out through the chat API. In websocket mode clients
			play over /ws. Settings missing from the config file are read from
			the environment.
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if botMode != "" {
				conf.BotMode = botMode
				if err = conf.Validate(); err != nil {
					return err
				}
			}

			logger := NewLogger(os.Stdout, conf.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err = app.RunApp(ctx, logger, conf); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yml", "path to the config file")
	cmd.Flags().StringVarP(&botMode, "mode", "m", "", "startup mode, webhook or websocket (overrides the config)")

	return cmd
}
