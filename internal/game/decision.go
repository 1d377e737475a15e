package game

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hexhavoc/hexhavoc-server/internal/grid"
)

// Kind is the recognized decision vocabulary.
type Kind string

const (
	KindExpand Kind = "expand"
	KindAttack Kind = "attack"
	KindAlly   Kind = "ally"
	KindPeace  Kind = "peace"
	KindTrade  Kind = "trade"
	KindHold   Kind = "hold"
)

// Decision is the classified form of a provider's free-text reply.
type Decision struct {
	Kind Kind
	// Raw is the original reply, kept for target extraction and memory.
	Raw string
}

// classifyOrder is the substring-match priority: first match wins.
var classifyOrder = []Kind{KindExpand, KindAttack, KindAlly, KindPeace, KindTrade}

// Classify matches the provider's reply, case-insensitively, against the
// decision vocabulary. Anything unrecognized is a hold.
func Classify(text string) Decision {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, kind := range classifyOrder {
		if strings.Contains(lowered, string(kind)) {
			return Decision{Kind: kind, Raw: lowered}
		}
	}
	return Decision{Kind: KindHold, Raw: lowered}
}

var coordPattern = regexp.MustCompile(`(-?\d+)\s*,\s*(-?\d+)`)

// targetCoord extracts the first "q, r" coordinate pair embedded in the
// decision text.
func (d Decision) targetCoord() (grid.Coord, bool) {
	m := coordPattern.FindStringSubmatch(d.Raw)
	if m == nil {
		return grid.Coord{}, false
	}
	q, err1 := strconv.Atoi(m[1])
	r, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return grid.Coord{}, false
	}
	return grid.Coord{Q: q, R: r}, true
}
