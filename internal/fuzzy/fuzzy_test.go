package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var players = []string{"LeBron James", "Luka Dončić", "Anthony Davis", "Jalen Brunson", "Jayson Tatum"}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LeBron James", "lebron james"},
		{"  Luka   Dončić ", "luka doncic"},
		{"Nikola Jokić", "nikola jokic"},
		{"", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Luka Doncic", "luka dončić"))
	assert.InDelta(t, 0.75, Similarity("abcd", "abce"), 1e-9)
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	assert.Equal(t, 1.0, Similarity("", ""))
}

func TestCloseMatches(t *testing.T) {
	t.Run("typo resolves to player", func(t *testing.T) {
		assert.Equal(t, []string{"LeBron James"}, CloseMatches("Lebron Jmes", players, 3, DefaultCutoff))
	})

	t.Run("below cutoff yields nothing", func(t *testing.T) {
		assert.Empty(t, CloseMatches("Gronk", players, 3, DefaultCutoff))
	})

	t.Run("ties keep candidate order", func(t *testing.T) {
		got := CloseMatches("ab", []string{"ac", "ad", "ab"}, 3, 0.5)
		assert.Equal(t, []string{"ab", "ac", "ad"}, got)
	})

	t.Run("limit n", func(t *testing.T) {
		got := CloseMatches("ab", []string{"ac", "ad", "ae"}, 2, 0.5)
		assert.Equal(t, []string{"ac", "ad"}, got)
	})

	t.Run("blank word", func(t *testing.T) {
		assert.Nil(t, CloseMatches("  ", players, 3, 0))
	})
}

func TestBest(t *testing.T) {
	got, ok := Best("jalen brunsen", players, DefaultCutoff)
	assert.True(t, ok)
	assert.Equal(t, "Jalen Brunson", got)

	_, ok = Best("zzz", players, DefaultCutoff)
	assert.False(t, ok)
}

func TestSuggestions(t *testing.T) {
	got := Suggestions([]string{"Jayson Tatun", "Jayson Tatum", "Lebron Jame"}, players)
	assert.Equal(t, []string{"Jayson Tatum", "LeBron James"}, got)

	assert.Empty(t, Suggestions([]string{"Gronk"}, players))

	many := Suggestions([]string{"abcd", "abcg"}, []string{"abce", "abcf", "abcd", "abcg"})
	assert.Equal(t, []string{"abcd", "abce", "abcf"}, many)
}
