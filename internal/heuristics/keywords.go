package heuristics

import (
	"regexp"
	"sort"
	"strings"
)

// KeywordExtractor turns free text into a normalized keyword set
type KeywordExtractor interface {
	Keywords(text string) map[string]struct{}
	// Contains reports whether term (possibly multi-word) occurs in text
	Contains(text, term string) bool
}

var wordPattern = regexp.MustCompile(`[a-zà-ÿ]{3,}`)

var stopwords = toSet(
	// fr
	"les", "des", "une", "pour", "avec", "dans", "sur", "par", "est", "sont", "aux", "ces", "ses", "leur", "leurs",
	"nous", "vous", "qui", "que", "quoi", "dont", "plus", "tout", "tous", "toutes", "votre", "vos", "notre", "nos",
	"cette", "mais", "ou", "donc", "car", "pas", "être", "avoir", "fait", "faire", "chez", "entre", "aussi", "bien",
	"accueil", "contact", "contactez", "nous",
	// en
	"the", "and", "for", "with", "your", "our", "you", "are", "from", "that", "this", "was", "were", "will",
	"can", "has", "have", "not", "but", "all", "any", "about", "more", "into", "over", "home", "welcome", "page",
	"inc", "ltd", "llc", "www", "com", "http", "https",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// RegexKeywords extracts lower-cased words of three or more letters, accents
// included, minus French and English stopwords.
type RegexKeywords struct{}

func NewRegexKeywords() *RegexKeywords {
	return &RegexKeywords{}
}

func (RegexKeywords) Keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func (r RegexKeywords) Contains(text, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, term) {
		return true
	}
	// "assurance habitation" matches a page saying "habitation ... assurance"
	words := r.Keywords(term)
	if len(words) == 0 {
		return false
	}
	have := r.Keywords(text)
	for w := range words {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

// Jaccard is |a ∩ b| / |a ∪ b|, zero when both are empty
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Sorted returns the set members in lexical order
func Sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
