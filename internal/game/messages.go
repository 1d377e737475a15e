package game

import "github.com/hexhavoc/hexhavoc-server/internal/grid"

// Envelope kinds pushed to clients.
const (
	KindUpdate = "update"
	KindEnd    = "end"
	KindError  = "error"
)

// Sender delivers outbound envelopes to a single connected client. The
// transport layer owns the implementation; the game core never touches a
// socket directly.
type Sender interface {
	Send(v any) error
	Close() error
}

// PlayerSummary is the per-player view embedded in every broadcast.
type PlayerSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Personality string          `json:"personality"`
	Territories int             `json:"territories"`
	Resources   int             `json:"resources"`
	Allies      []string        `json:"allies"`
	Enemies     []string        `json:"enemies"`
	Strategy    *Strategy       `json:"strategy,omitempty"`
	Alliance    *AlliancePolicy `json:"allianceParams,omitempty"`
}

// Standing is one row of the final results.
type Standing struct {
	Name              string   `json:"name"`
	Personality       string   `json:"personality"`
	Territories       int      `json:"territories"`
	Resources         int      `json:"resources"`
	ControlPercentage int      `json:"controlPercentage"`
	Allies            []string `json:"allies"`
	Enemies           []string `json:"enemies"`
}

// FinalResults is attached to the end envelope.
type FinalResults struct {
	Standings []Standing `json:"standings"`
	Winner    Standing   `json:"winner"`
}

// Envelope is the enriched state pushed to every client in a room on each
// state change.
type Envelope struct {
	Type          string          `json:"type"`
	Grid          []*grid.Hex     `json:"grid"`
	Players       []PlayerSummary `json:"players"`
	Turn          int             `json:"turn"`
	Message       string          `json:"message"`
	CurrentPlayer string          `json:"currentPlayer"`
	PlayerCount   int             `json:"playerCount"`
	Started       bool            `json:"started"`
	FinalResults  *FinalResults   `json:"finalResults,omitempty"`
}

// ErrorEnvelope is sent only to the connection that issued a rejected
// request.
type ErrorEnvelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorEnvelope wraps a rejection message for a single connection.
func NewErrorEnvelope(message string) ErrorEnvelope {
	return ErrorEnvelope{Type: KindError, Message: message}
}
