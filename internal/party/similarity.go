package party

import (
	"regexp"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var (
	looseOnBehalf = []*regexp.Regexp{
		regexp.MustCompile(`\bm/s\b`),
		regexp.MustCompile(`\bm s\b`),
		regexp.MustCompile(`\bms\b`),
	}
	looseNonWord = regexp.MustCompile(`[^a-z0-9\s]`)
)

// looseName is the lower-case form used for fuzzy comparisons: & spelled
// out, M/S removed, punctuation turned into spaces.
func looseName(raw string) string {
	s := strings.ToLower(fold(raw))
	s = strings.ReplaceAll(s, "&", " and ")
	for _, re := range looseOnBehalf {
		s = re.ReplaceAllString(s, " ")
	}
	s = strings.ReplaceAll(s, ".", " ")
	s = looseNonWord.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// tokenSetSimilarity is the Jaccard index of the two token sets.
func tokenSetSimilarity(a, b string) float64 {
	sa, sb := uniq(strings.Fields(a)), uniq(strings.Fields(b))
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// sequenceRatio is 2*M/T over runes, with M derived from the insert/delete
// edit distance.
func sequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	d := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return float64(total-d) / float64(total)
}

// SimilarName is the fuzzy counterpart of SameEntity. It tolerates typos
// and reordering: names agree when they are equal after loose
// normalization, when their token sets overlap strongly or when their
// character sequences are close.
func (r *Resolver) SimilarName(a, b string) bool {
	n1, n2 := looseName(a), looseName(b)
	if n1 == "" || n2 == "" {
		return false
	}
	if n1 == n2 {
		return true
	}
	if tokenSetSimilarity(n1, n2) >= r.cfg.NameTokenSet {
		return true
	}
	return sequenceRatio(n1, n2) >= r.cfg.NameSequence
}

// NamesAgree is SameEntity or SimilarName.
func (r *Resolver) NamesAgree(a, b string) bool {
	return r.SameEntity(a, b) || r.SimilarName(a, b)
}

// DescriptionMentions reports whether a transaction description refers to
// name. Bank narrations truncate, split and run words together, so a chain
// of progressively looser tests is applied.
func (r *Resolver) DescriptionMentions(name, description string) bool {
	cat := looseName(name)
	if cat == "" {
		return false
	}
	desc := looseName(description)
	catTokens, descTokens := strings.Fields(cat), strings.Fields(desc)

	if strings.Contains(desc, cat) {
		return true
	}

	descSet := uniq(descTokens)
	subset := true
	for _, t := range catTokens {
		if _, ok := descSet[t]; !ok {
			subset = false
			break
		}
	}
	if subset {
		return true
	}

	// Split words: "EAR TH" in the narration for "EARTH" in the name.
	found := 0
	for _, t := range catTokens {
		if _, ok := descSet[t]; ok || concatMatches(t, descTokens, r.cfg.MentionMaxConcat) {
			found++
		}
	}
	if found == len(catTokens) {
		return true
	}

	if strings.Contains(strings.Join(descTokens, ""), strings.Join(catTokens, "")) {
		return true
	}

	if float64(found)/float64(len(catTokens)) >= r.cfg.MentionProportion {
		return true
	}

	if sequenceRatio(cat, desc) >= r.cfg.MentionSequence {
		return true
	}

	return tokenSetSimilarity(cat, desc) >= r.cfg.MentionTokenSet
}

// concatMatches reports whether token equals up to maxConcat consecutive
// description tokens joined together.
func concatMatches(token string, desc []string, maxConcat int) bool {
	for i := range desc {
		joined := desc[i]
		if joined == token {
			return true
		}
		for j := i + 1; j < len(desc) && j < i+maxConcat; j++ {
			joined += desc[j]
			if joined == token {
				return true
			}
		}
	}
	return false
}
