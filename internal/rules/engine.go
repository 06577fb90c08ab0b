package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartPosition is the standard chess starting position.
const StartPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove covers every rejection reason uniformly: bad shape,
// blocked path, moving into check, wrong piece, malformed squares.
var ErrIllegalMove = errors.New("rules: illegal move")

// Move is one candidate move in coordinate form ("e2" -> "e4").
// Promotion is a lowercase piece letter and may be empty.
type Move struct {
	From      string
	To        string
	Promotion string
}

// UCI renders the move in UCI notation ("e2e4", "e7e8q").
func (m Move) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

// Result is the engine verdict for an accepted move.
type Result struct {
	Position    string // FEN after the move
	Turn        string // "white" or "black": side to move next
	SAN         string // textual notation of the accepted move
	IsCheckmate bool
	IsStalemate bool
	IsOtherDraw bool // forced draw other than stalemate (repetition, insufficient material, move rule)
}

// Engine validates a single move against a position. Implementations
// are stateless; the caller owns the authoritative position.
type Engine interface {
	ApplyMove(position string, mv Move) (Result, error)
}

type engine struct{}

// NewEngine returns the library-backed rules engine.
func NewEngine() Engine { return engine{} }

func (engine) ApplyMove(position string, mv Move) (Result, error) {
	fen, err := nchess.FEN(position)
	if err != nil {
		return Result{}, fmt.Errorf("parse position: %w", err)
	}
	game := nchess.NewGame(fen)
	pos := game.Position()

	uci := mv.UCI()
	if len(uci) < 4 {
		return Result{}, ErrIllegalMove
	}
	decoded, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Result{}, ErrIllegalMove
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, decoded)
	if err := game.Move(decoded, nil); err != nil {
		return Result{}, ErrIllegalMove
	}

	res := Result{
		Position: game.FEN(),
		Turn:     colorName(game.Position().Turn()),
		SAN:      san,
	}
	switch game.Outcome() {
	case nchess.WhiteWon, nchess.BlackWon:
		// The only decisive method without clocks is checkmate.
		res.IsCheckmate = true
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			res.IsStalemate = true
		} else {
			res.IsOtherDraw = true
		}
	}
	return res, nil
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "white"
	}
	return "black"
}
