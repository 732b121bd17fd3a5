package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/msgcat"
)

const (
	SymbolX     = "❌"
	SymbolO     = "⭕"
	SymbolEmpty = "⬜"
)

// Callback data carried by inline buttons.
const (
	CallbackSelectMode  = "select_mode"
	CallbackBackToStart = "back_to_start"
	CallbackHowToPlay   = "how_to_play"
	CallbackPlayVsBot   = "play_vs_bot"
	CallbackModeClassic = "mode_classic"
	CallbackModeRandom  = "mode_random"
	CallbackNewGame     = "new_game"

	movePrefix = "move_"
)

type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Data is what message templates can refer to.
type Data struct {
	Human string
	Bot   string
	Mode  string
	Row   int
	Col   int
}

func Symbol(mark entity.Mark) string {
	switch mark {
	case entity.PlayerX:
		return SymbolX
	case entity.PlayerO:
		return SymbolO
	default:
		return SymbolEmpty
	}
}

// MoveData encodes pos as "move_R_C".
func MoveData(pos entity.Position) string {
	return fmt.Sprintf("%s%d_%d", movePrefix, pos.Row, pos.Col)
}

// ParseMoveData decodes "move_R_C". The position is not range checked.
func ParseMoveData(data string) (entity.Position, bool) {
	rest, ok := strings.CutPrefix(data, movePrefix)
	if !ok {
		return entity.Position{}, false
	}

	rowText, colText, ok := strings.Cut(rest, "_")
	if !ok {
		return entity.Position{}, false
	}

	row, err := strconv.Atoi(rowText)
	if err != nil {
		return entity.Position{}, false
	}

	col, err := strconv.Atoi(colText)
	if err != nil {
		return entity.Position{}, false
	}

	return entity.Position{Row: row, Col: col}, true
}

// Grid draws the board as rows of symbols.
func Grid(cells []entity.Mark) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 && i%entity.BoardSize == 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Symbol(cell))
	}

	return b.String()
}

// Renderer turns games into chat texts and keyboards using a message catalog.
type Renderer struct {
	catalog *msgcat.Catalog
}

func New(catalog *msgcat.Catalog) *Renderer {
	return &Renderer{catalog: catalog}
}

func (that *Renderer) Text(key string, data any) string {
	return that.catalog.Text(key, data)
}

// DataFor exposes the sides of game as symbols.
func (that *Renderer) DataFor(game *entity.Game) Data {
	return Data{
		Human: Symbol(game.HumanSide),
		Bot:   Symbol(game.BotSide),
		Mode:  game.Mode.String(),
	}
}

// DefaultData describes a classic game, used before one exists.
func (that *Renderer) DefaultData() Data {
	return Data{
		Human: SymbolX,
		Bot:   SymbolO,
		Mode:  entity.ModeClassic.String(),
	}
}

// StatusKey picks the status message for game: status.<mode>.<won|lost|draw|ongoing>.
func StatusKey(game *entity.Game) string {
	suffix := "ongoing"
	switch game.Result() {
	case entity.ResultHuman:
		suffix = "won"
	case entity.ResultBot:
		suffix = "lost"
	case entity.ResultDraw:
		suffix = "draw"
	}

	return "status." + game.Mode.String() + "." + suffix
}

func (that *Renderer) Status(game *entity.Game) string {
	return that.Text(StatusKey(game), that.DataFor(game))
}

// GameKeyboard is the 3x3 board followed by a "new game" row.
func (that *Renderer) GameKeyboard(game *entity.Game) Keyboard {
	cells := game.Board.Cells()

	keyboard := make(Keyboard, 0, entity.BoardSize+1)
	for row := range entity.BoardSize {
		buttons := make([]Button, 0, entity.BoardSize)
		for col := range entity.BoardSize {
			pos := entity.Position{Row: row, Col: col}
			buttons = append(buttons, Button{Text: Symbol(cells[pos.Index()]), Data: MoveData(pos)})
		}
		keyboard = append(keyboard, buttons)
	}

	return append(keyboard, []Button{{Text: that.Text("button.new_game", nil), Data: CallbackNewGame}})
}

func (that *Renderer) StartKeyboard() Keyboard {
	return Keyboard{
		{{Text: that.Text("button.play", nil), Data: CallbackSelectMode}},
		{{Text: that.Text("button.how_to_play", nil), Data: CallbackHowToPlay}},
	}
}

func (that *Renderer) ModeKeyboard() Keyboard {
	return Keyboard{
		{{Text: that.Text("button.classic", nil), Data: CallbackModeClassic}},
		{{Text: that.Text("button.random", nil), Data: CallbackModeRandom}},
		{{Text: that.Text("button.back", nil), Data: CallbackBackToStart}},
	}
}
