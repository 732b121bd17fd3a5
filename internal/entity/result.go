package entity

// Result is the outcome of a game seen from the human's side.
type Result string

const (
	ResultPending Result = "pending"
	ResultHuman   Result = "human"
	ResultBot     Result = "bot"
	ResultDraw    Result = "draw"
)

// Result maps the board outcome onto the participants. In random mode the
// winner is whoever owns the side whose mark completed a line.
func (that *Game) Result() Result {
	switch that.Status() {
	case Draw:
		return ResultDraw
	case XWins:
		return that.resultFor(PlayerX)
	case OWins:
		return that.resultFor(PlayerO)
	default:
		return ResultPending
	}
}

func (that *Game) resultFor(winner Mark) Result {
	switch winner {
	case that.HumanSide:
		return ResultHuman
	case that.BotSide:
		return ResultBot
	default:
		return ResultPending
	}
}
