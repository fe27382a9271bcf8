package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected int
	}{
		{"identical", "kitten", "kitten", 0},
		{"classic", "kitten", "sitting", 3},
		{"empty left", "", "abc", 3},
		{"empty right", "abc", "", 3},
		{"both empty", "", "", 0},
		{"single substitution", "cat", "bat", 1},
		{"insertion", "cat", "cats", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, scorer.LevenshteinDistance(tt.b, tt.a))
		})
	}
}

func TestJaroWinkler(t *testing.T) {
	scorer := NewScorer()

	t.Run("known value", func(t *testing.T) {
		assert.InDelta(t, 0.961, scorer.JaroWinkler("MARTHA", "MARHTA"), 0.001)
	})

	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.JaroWinkler("acme", "acme"))
	})

	t.Run("empty strings", func(t *testing.T) {
		// Equality wins before the empty-string short-circuit.
		assert.Equal(t, 1.0, scorer.JaroWinkler("", ""))
		assert.Equal(t, 0.0, scorer.JaroWinkler("acme", ""))
		assert.Equal(t, 0.0, scorer.JaroWinkler("", "acme"))
	})

	t.Run("no common characters", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.JaroWinkler("abc", "xyz"))
	})

	t.Run("prefix boost", func(t *testing.T) {
		// Shared prefix should score above a transposed variant with none.
		assert.Greater(t, scorer.JaroWinkler("prefixed", "prefixes"), scorer.Jaro("prefixed", "prefixes"))
	})

	t.Run("bounds and symmetry", func(t *testing.T) {
		pairs := [][2]string{
			{"dwayne", "duane"},
			{"dixon", "dicksonx"},
			{"acme corp", "acme corporation"},
		}
		for _, p := range pairs {
			got := scorer.JaroWinkler(p[0], p[1])
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
			assert.Equal(t, got, scorer.JaroWinkler(p[1], p[0]))
		}
	})
}

func TestStringSimilarity(t *testing.T) {
	scorer := NewScorer()

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, scorer.StringSimilarity("  Acme Corp ", "acme corp"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, 0.0, scorer.StringSimilarity("", ""))
		assert.Equal(t, 0.0, scorer.StringSimilarity("acme", "   "))
	})

	t.Run("blend stays within bounds", func(t *testing.T) {
		got := scorer.StringSimilarity("Acme Corp", "ACME Corporation")
		assert.Greater(t, got, 0.7)
		assert.Less(t, got, 1.0)
	})

	t.Run("dissimilar scores low", func(t *testing.T) {
		assert.Less(t, scorer.StringSimilarity("Acme Corp", "Zenith Widgets"), 0.5)
	})
}

func TestTokenSimilarity(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{"identical tokens", "Acme Corporation", "acme corporation", 1.0},
		{"partial overlap", "Acme Corp Holdings", "Acme Corp", 2.0 / 3.0},
		{"short tokens dropped", "of the", "of the", 0.0},
		{"punctuation stripped", "acme, corporation!", "acme corporation", 1.0},
		{"no overlap", "alpha beta", "gamma delta", 0.0},
		{"empty", "", "acme", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorer.TokenSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestSoundex(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, "R163", scorer.Soundex("Robert"))
	assert.Equal(t, "R163", scorer.Soundex("Rupert"))
	assert.Equal(t, 1.0, scorer.SoundexMatch("Robert", "Rupert"))
	assert.Equal(t, 0.0, scorer.SoundexMatch("Robert", "Smith"))
}
