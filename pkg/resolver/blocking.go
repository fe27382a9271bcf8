package resolver

import (
	"strings"

	"github.com/Ramsey-B/briar/pkg/models"
	"github.com/Ramsey-B/briar/pkg/similarity"
)

// BlockingPredicate decides whether a pair of entities is worth scoring.
// Blocking keeps the pairwise scan tractable: pairs that cannot plausibly
// match are discarded before the full scorer runs.
type BlockingPredicate func(a, b *models.Entity) bool

// PrefixBlocking passes a pair when the lowercased label prefixes of the
// given length match, or are within maxDistance edits of each other. This is
// the default scheme: cheap, and tolerant of leading typos.
func PrefixBlocking(prefixLen, maxDistance int) BlockingPredicate {
	scorer := similarity.NewScorer()
	return func(a, b *models.Entity) bool {
		pa := labelPrefix(a.Label, prefixLen)
		pb := labelPrefix(b.Label, prefixLen)
		if pa == "" || pb == "" {
			return false
		}
		if pa == pb {
			return true
		}
		return scorer.LevenshteinDistance(pa, pb) <= maxDistance
	}
}

// SoundexBlocking passes a pair when the phonetic keys of the first label
// token match. Useful for person names where spellings vary.
func SoundexBlocking() BlockingPredicate {
	scorer := similarity.NewScorer()
	return func(a, b *models.Entity) bool {
		ta := firstToken(a.Label)
		tb := firstToken(b.Label)
		if ta == "" || tb == "" {
			return false
		}
		return scorer.Soundex(ta) == scorer.Soundex(tb)
	}
}

func labelPrefix(label string, n int) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if len(label) < n {
		return label
	}
	return label[:n]
}

func firstToken(label string) string {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
