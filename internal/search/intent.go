package search

import (
	"strings"
	"unicode"
)

// Intent is the coarse classification of what a query is after.
type Intent string

const (
	IntentPersonName    Intent = "person_name"
	IntentExecutiveRole Intent = "executive_role"
	IntentService       Intent = "service"
	IntentHowTo         Intent = "howto"
	IntentNavigational  Intent = "navigational"
	IntentTransactional Intent = "transactional"
	IntentGeneral       Intent = "general"
)

var (
	roleLexicon          = []string{"ceo", "president", "chief", "executive", "director"}
	serviceLexicon       = []string{"service", "services", "solutions", "consulting", "support"}
	navLexicon           = []string{"contact", "about", "team", "careers", "locations"}
	transactionalLexicon = []string{"buy", "download", "order", "request", "hire"}
	interrogatives       = []string{"who", "what", "which", "whose"}
	questionStarters     = []string{"how", "what", "why", "when", "where"}
)

// Classify maps a query to an intent. Rules are checked in order; the
// first match wins.
func Classify(query string) Intent {
	trimmed := strings.Trim(strings.TrimSpace(query), `"'`)
	tokens := strings.Fields(trimmed)
	lower := strings.ToLower(trimmed)
	lowerTokens := strings.Fields(lower)

	if looksLikePersonName(tokens) {
		return IntentPersonName
	}
	if containsAny(lowerTokens, roleLexicon) && isInterrogative(lower, lowerTokens) {
		return IntentExecutiveRole
	}
	if containsAny(lowerTokens, serviceLexicon) {
		return IntentService
	}
	if len(lowerTokens) > 0 && containsWord(questionStarters, lowerTokens[0]) {
		return IntentHowTo
	}
	if containsAny(lowerTokens, navLexicon) {
		return IntentNavigational
	}
	if containsAny(lowerTokens, transactionalLexicon) {
		return IntentTransactional
	}
	return IntentGeneral
}

// looksLikePersonName matches exactly two capitalized alphabetic tokens of
// three or more letters.
func looksLikePersonName(tokens []string) bool {
	if len(tokens) != 2 {
		return false
	}
	for _, tok := range tokens {
		runes := []rune(tok)
		if len(runes) < 3 || !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

func isInterrogative(lower string, tokens []string) bool {
	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return true
	}
	return containsAny(tokens, interrogatives)
}

func containsAny(tokens []string, lexicon []string) bool {
	for _, tok := range tokens {
		if containsWord(lexicon, strings.Trim(tok, "?.,!")) {
			return true
		}
	}
	return false
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// Instructions returns the fixed guidance block for an intent. Custom
// caller instructions are appended by the engine at prompt time.
func (i Intent) Instructions() string {
	switch i {
	case IntentPersonName:
		return "The query is a person's name. Prefer profile or team pages titled with that exact name over articles that merely mention it."
	case IntentExecutiveRole:
		return "The query asks who holds a role. Prefer pages naming the current holder over general organizational content."
	case IntentService:
		return "The query looks for a service. Prefer dedicated service or solutions pages over commentary."
	case IntentHowTo:
		return "The query asks for an explanation. Prefer content that directly answers the question over topical mentions."
	case IntentNavigational:
		return "The query targets a site section. Prefer the canonical page for that section."
	case IntentTransactional:
		return "The query expresses intent to act. Prefer pages where the action can be completed."
	default:
		return ""
	}
}
