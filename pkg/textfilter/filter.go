// Package textfilter keeps oracle narration inside the configured content
// rating by swapping profanity for softer words.
package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const censored = "[censored]"

// replacements pairs each filtered word with what the player sees instead.
var replacements = map[string]string{
	"fuck": "fudge", "motherfucker": "mother-trucker",
	"shit": "shoot", "bullshit": "baloney", "horseshit": "nonsense", "dipshit": "dummy", "shithead": "jerk",
	"damn": "dang", "goddamn": "gosh-dang",
	"hell": "heck",
	"ass": "butt", "asshole": "jerk", "dumbass": "dummy", "jackass": "jerk", "smartass": "smarty", "badass": "tough",
	"bitch": "jerk", "bastard": "jerk", "dick": "jerk", "dickhead": "jerk", "prick": "jerk",
	"douche": "jerk", "douchebag": "jerk",
	"crap": "crud", "piss": "ticked",
	"jesus christ": "jeez", "christ": "crikey",
	"cock": censored, "pussy": censored, "tits": censored, "boobs": censored,
	"whore": censored, "slut": censored,
	"fag": censored, "retard": censored, "nigger": censored, "nigga": censored,
	"spic": censored, "chink": censored, "kike": censored,
}

type rule struct {
	word        string
	pattern     *regexp.Regexp
	replacement string
}

// NarrationFilter rewrites narration for family-friendly ratings.
type NarrationFilter struct {
	rules []rule
}

// NewNarrationFilter compiles the word list. Longer phrases are matched
// first so "jesus christ" wins over "christ".
func NewNarrationFilter() *NarrationFilter {
	words := make([]string, 0, len(replacements))
	for w := range replacements {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	f := &NarrationFilter{
		rules: make([]rule, 0, len(words)),
	}
	for _, w := range words {
		f.rules = append(f.rules, rule{
			word:        w,
			pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`),
			replacement: replacements[w],
		})
	}
	return f
}

// ForRating returns a filter when rating calls for one, and nil otherwise.
func ForRating(rating string) *NarrationFilter {
	if !ShouldFilterContent(rating) {
		return nil
	}
	return NewNarrationFilter()
}

// ShouldFilterContent reports whether narration at this rating is filtered.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

// FilterText replaces every filtered word, keeping the original's casing.
func (f *NarrationFilter) FilterText(text string) string {
	for _, r := range f.rules {
		replacement := r.replacement
		text = r.pattern.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, replacement)
		})
	}
	return text
}

// Flagged lists the filtered words found in text, longest first.
func (f *NarrationFilter) Flagged(text string) []string {
	var found []string
	for _, r := range f.rules {
		if r.pattern.MatchString(text) {
			found = append(found, r.word)
		}
	}
	return found
}

// matchCase builds a fresh Caser per call; Casers are not safe to share.
func matchCase(original, replacement string) string {
	title := cases.Title(language.English)
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	case title.String(strings.ToLower(original)) == original:
		return title.String(replacement)
	}

	// Mixed case: copy the pattern rune by rune, lowercase past the end.
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}
