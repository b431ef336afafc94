// internal/textutil/text.go
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize applies NFKC and case folding, so ligatures and full-width
// characters produced by PDF text extraction compare equal to plain text.
func Normalize(s string) string {
	return folder.String(norm.NFKC.String(s))
}

// Words splits s into lowercase word tokens. Apostrophes and hyphens inside a
// word are kept ("state-run", "mayor's").
func Words(s string) []string {
	s = Normalize(s)
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.Trim(cur.String(), "'-’"))
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case (r == '\'' || r == '’' || r == '-') && cur.Len() > 0:
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// RuneLen is the length of s in characters.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

var titler = cases.Title(language.English)

// TitleCase capitalises the first letter of every word.
func TitleCase(s string) string {
	return titler.String(s)
}

// IsStopword reports whether w carries no topical meaning on its own.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

var stopwords = func() map[string]struct{} {
	list := strings.Fields(`
a about above after again against all almost also am among an and any are aren't as at
be became because been before being below between both but by
can cannot could couldn't did didn't do does doesn't doing don't down during
each either else ever every few for from further
had hadn't has hasn't have haven't having he he'd he'll he's her here here's hers herself him himself his how how's however
i i'd i'll i'm i've if in into is isn't it it's its itself
just let's like many may me might more most much must mustn't my myself
neither no nor not now of off often on once one only or other ought our ours ourselves out over own
per rather said same says shan't she she'd she'll she's should shouldn't since so some such
than that that's the their theirs them themselves then there there's these they they'd they'll they're they've
this those though through thus to too two under until up upon us very via
was wasn't we we'd we'll we're we've were weren't what what's when when's where where's whether which while who who's whom whose why why's
will with within without won't would wouldn't yet you you'd you'll you're you've your yours yourself yourselves
mr mrs ms dr new also year years today yesterday tomorrow`)
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}()
