package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "tictactoe-bot",
		Short: "Tic-tac-toe chat bot with an unbeatable opponent",
		Long: heredoc.Doc(`
			tictactoe-bot plays tic-tac-toe against people.

			"serve" runs the bot behind a chat webhook or a websocket endpoint,
			"play" starts a game in this terminal.
		`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(Serve())
	root.AddCommand(Play())

	return root
}
