package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/flowby-lang/flowby/token"
)

// Error is a syntax error with location and recovery context. The parser
// records the error, resynchronizes at the next statement boundary and keeps
// going, so a single pass surfaces every independent syntax error.
type Error struct {
	Pos      token.Position
	Expected string // what the grammar wanted at this point
	Found    string // what was actually there
	Message  string // used when Expected/Found do not fit the failure
	Suggest  string // optional "did you mean" candidate
}

func (e Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", e.Pos)
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		fmt.Fprintf(&b, "expected %s, found %s", e.Expected, e.Found)
	}
	if e.Suggest != "" {
		fmt.Fprintf(&b, " (did you mean %q?)", e.Suggest)
	}
	return b.String()
}

// closestMatch returns the best fuzzy match for target among candidates, or
// "" when nothing is close enough to be a useful suggestion.
func closestMatch(target string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	return ""
}
