package game

import "errors"

// Protocol rejections surfaced to the offending connection as error
// envelopes. None of them mutate room state.
var (
	ErrRoomFull         = errors.New("Room is full")
	ErrNotYourTurn      = errors.New("Not your turn")
	ErrUnknownHex       = errors.New("Unknown hex")
	ErrHexOccupied      = errors.New("Cannot expand to occupied territory")
	ErrNotAdjacent      = errors.New("Can only expand to adjacent territories")
	ErrBadAttackTarget  = errors.New("Cannot attack this territory")
	ErrAttackOutOfRange = errors.New("Can only attack adjacent territories")
	ErrPlayerNotFound   = errors.New("Player not found")
	ErrUnknownAction    = errors.New("Unknown action")
	ErrSelfAlliance     = errors.New("Cannot ally with yourself")
	ErrAlreadyAllied    = errors.New("already has an ally")
	ErrAllianceDisabled = errors.New("Alliances are disabled for one of the players")
	ErrAllianceTerms    = errors.New("Alliance terms are not acceptable")
)
