package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/msgcat"
	"github.com/rocketscienceinc/tictactoe-bot/internal/render"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
)

func Play() *cobra.Command {
	var (
		mode string
		seed uint64
		lang string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Plays a game in the terminal",
		Long: heredoc.Doc(`
			play starts a game against the bot in this terminal.

			Moves are entered as "row col", both from 1 to 3. In classic mode
			you play X against minimax, in random mode every move places a
			random mark and the sides are drawn at the start.
		`),
		Example: heredoc.Doc(`
			$ tictactoe-bot play
			$ tictactoe-bot play --mode random --seed 42
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			gameMode, err := entity.ParseMode(mode)
			if err != nil {
				return err
			}

			catalog, err := msgcat.New(lang, "")
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			controller := tictactoe.NewGameController(rand.New(rand.NewPCG(seed, seed)))

			session := newTerminalSession(cmd.InOrStdin(), termenv.NewOutput(cmd.OutOrStdout()), render.New(catalog), controller)

			return session.Run(gameMode)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", entity.ModeClassic.String(), "game mode, classic or random")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, 0 picks one from the clock")
	cmd.Flags().StringVar(&lang, "lang", msgcat.DefaultLanguage, "message language")

	return cmd
}

type terminalController interface {
	NewGame(id string, mode entity.Mode) *entity.Game
	MakeTurn(game *entity.Game, pos entity.Position) error
}

// terminalSession plays one game over a line based terminal.
type terminalSession struct {
	in         *bufio.Scanner
	out        *termenv.Output
	renderer   *render.Renderer
	controller terminalController
}

func newTerminalSession(in io.Reader, out *termenv.Output, renderer *render.Renderer, controller terminalController) *terminalSession {
	return &terminalSession{
		in:         bufio.NewScanner(in),
		out:        out,
		renderer:   renderer,
		controller: controller,
	}
}

// Run returns when the game ends, the input is exhausted or the player quits.
func (that *terminalSession) Run(mode entity.Mode) error {
	game := that.controller.NewGame(uuid.NewString(), mode)
	data := that.renderer.DataFor(game)

	that.println(that.renderer.Text("cli.intro", data))

	for {
		that.println("")
		that.println(that.out.String(render.Grid(game.Board.Cells())).Bold().String())

		if game.IsFinished() {
			that.println(that.styleResult(game).String())
			return nil
		}

		fmt.Fprint(that.out, that.renderer.Text("cli.prompt", data))

		if !that.in.Scan() {
			that.println("")
			return that.in.Err()
		}

		line := strings.TrimSpace(that.in.Text())
		if strings.EqualFold(line, "q") {
			return nil
		}

		pos, ok := parsePosition(line)
		if !ok {
			that.warn(that.renderer.Text("cli.invalid_input", nil))
			continue
		}

		before := game.Board
		if err := that.controller.MakeTurn(game, pos); err != nil {
			if !errors.Is(err, apperror.ErrIllegalMove) {
				return err
			}
			that.warn(that.renderer.Text("alert.illegal_move", nil))
			continue
		}

		if botPos, ok := botMove(before, game.Board, pos); ok {
			moveData := data
			moveData.Row, moveData.Col = botPos.Row+1, botPos.Col+1
			that.println(that.renderer.Text("cli.bot_move", moveData))
		}
	}
}

func (that *terminalSession) styleResult(game *entity.Game) termenv.Style {
	style := that.out.String(that.renderer.Status(game)).Bold()

	switch game.Result() {
	case entity.ResultHuman:
		return style.Foreground(that.out.Color("2"))
	case entity.ResultBot:
		return style.Foreground(that.out.Color("1"))
	default:
		return style.Foreground(that.out.Color("3"))
	}
}

func (that *terminalSession) warn(text string) {
	that.println(that.out.String(text).Foreground(that.out.Color("1")).String())
}

func (that *terminalSession) println(text string) {
	fmt.Fprintln(that.out, text)
}

// parsePosition reads "row col" with both numbers from 1 to 3.
func parsePosition(line string) (entity.Position, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return entity.Position{}, false
	}

	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return entity.Position{}, false
	}

	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return entity.Position{}, false
	}

	pos := entity.Position{Row: row - 1, Col: col - 1}

	return pos, pos.InRange()
}

// botMove finds the cell the bot filled after the human played human.
func botMove(before, after entity.Board, human entity.Position) (entity.Position, bool) {
	for i := range entity.BoardSize * entity.BoardSize {
		pos := entity.PositionAt(i)
		if pos != human && before.At(pos) != after.At(pos) {
			return pos, true
		}
	}

	return entity.Position{}, false
}
