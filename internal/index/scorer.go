package index

import "github.com/sahilm/fuzzy"

// Match is a candidate accepted by a Scorer. Higher scores are better.
type Match struct {
	Index int
	Score int
}

// Scorer fuzzy-matches a lowercase pattern against lowercase candidates and
// returns only the candidates that match, in any order.
type Scorer interface {
	Score(pattern string, candidates []string) []Match
}

// FuzzyScorer scores candidates with sahilm/fuzzy, which rewards consecutive
// runs, matches after separators and matches at the start of the string.
type FuzzyScorer struct{}

func (FuzzyScorer) Score(pattern string, candidates []string) []Match {
	if pattern == "" {
		out := make([]Match, len(candidates))
		for i := range candidates {
			out[i] = Match{Index: i}
		}
		return out
	}
	found := fuzzy.Find(pattern, candidates)
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{Index: m.Index, Score: m.Score}
	}
	return out
}
