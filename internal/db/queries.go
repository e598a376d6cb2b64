package db

import (
	"strings"
	"unicode"
)

// buildPrefixQuery turns free text into a tsquery where every token must
// match as a prefix: "blue sky" becomes "blue:* & sky:*". Tokens are split on
// anything that is not a letter or digit, the same boundaries the 'simple'
// parser uses, so tsquery operators in user input never reach Postgres.
func buildPrefixQuery(rawQuery string) string {
	tokens := strings.FieldsFunc(strings.ToLower(rawQuery), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		terms = append(terms, token+":*")
	}
	return strings.Join(terms, " & ")
}
