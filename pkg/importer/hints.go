package importer

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/agentstation/concilia/pkg/ledger"
)

// Hint flags a client about to be added whose name is close to an existing
// one. Hints never change what a merge does.
type Hint struct {
	Candidate ledger.Client `json:"candidate"`
	Existing  ledger.Client `json:"existing"`
	Distance  int           `json:"distance"`
}

// Hints compares each added client against the existing ones and keeps the
// closest match within maxDistance edits.
func Hints(existing, added []ledger.Client, maxDistance int) []Hint {
	var hints []Hint
	for _, c := range added {
		name := normalize(c.Name)
		best := -1
		var match ledger.Client
		for _, e := range existing {
			d := levenshtein.ComputeDistance(name, normalize(e.Name))
			if d > maxDistance {
				continue
			}
			if best < 0 || d < best {
				best, match = d, e
			}
		}
		if best >= 0 {
			hints = append(hints, Hint{Candidate: c, Existing: match, Distance: best})
		}
	}
	return hints
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
