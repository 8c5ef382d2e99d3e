// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/research-radar/pkg/types"
)

// AuthorMatcher decides whether a paper author is a configured expert.
type AuthorMatcher interface {
	Match(expert, author string) bool
}

// MatcherFor returns the matcher for a strategy name. Unknown names fall
// back to exact matching.
func MatcherFor(strategy string) AuthorMatcher {
	if strategy == types.MatchInitials {
		return InitialsMatcher{}
	}
	return ExactMatcher{}
}

// ExactMatcher compares full names case-insensitively after collapsing
// whitespace.
type ExactMatcher struct{}

// Match reports whether the two names are equal ignoring case and spacing.
func (ExactMatcher) Match(expert, author string) bool {
	return strings.EqualFold(strings.Join(strings.Fields(expert), " "), strings.Join(strings.Fields(author), " "))
}

// InitialsMatcher accepts abbreviated given names: "A. Smith",
// "Smith, Alice" and "Alice Smith" all match the expert "Alice Smith".
// Accents are folded, so "Zoë Müller" matches "Z. Muller".
type InitialsMatcher struct{}

// Match reports whether surnames are equal and the first given initials agree.
func (InitialsMatcher) Match(expert, author string) bool {
	es, eg := splitName(fold(expert))
	as, ag := splitName(fold(author))
	if es == "" || es != as {
		return false
	}
	if eg == "" || ag == "" {
		return eg == ag
	}
	return []rune(eg)[0] == []rune(ag)[0]
}

// FindExperts returns the distinct experts matched by any author, in
// expert list order.
func FindExperts(experts, authors []string, m AuthorMatcher) []string {
	if m == nil {
		m = ExactMatcher{}
	}
	var found []string
	for _, e := range experts {
		for _, a := range authors {
			if m.Match(e, a) {
				found = append(found, e)
				break
			}
		}
	}
	return found
}

// fold lowercases s and strips diacritics. Transformers carry state, so a
// new chain is built per call.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// splitName returns the surname and given names of "Surname, Given" or
// "Given Middle Surname", stripped of punctuation.
func splitName(name string) (surname, given string) {
	clean := func(s string) string {
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsSpace(r) || r == '-' {
				return r
			}
			return ' '
		}, s)
		return strings.Join(strings.Fields(s), " ")
	}
	if i := strings.Index(name, ","); i >= 0 {
		return clean(name[:i]), clean(name[i+1:])
	}
	fields := strings.Fields(clean(name))
	if len(fields) == 0 {
		return "", ""
	}
	return fields[len(fields)-1], strings.Join(fields[:len(fields)-1], " ")
}
