package llm

import (
	"fmt"
	"strings"
)

// PromptVersion is reported in search response metadata so prompt changes
// can be correlated with ranking shifts.
const PromptVersion = "2026-02"

// prompt is a versioned template. System text is fixed; the user message
// is assembled per call.
type prompt struct {
	name    string
	version string
	system  string
}

var (
	rewritePrompt = prompt{
		name:    "rewrite",
		version: PromptVersion,
		system: `You reformulate search queries for a site search engine.
Given a user query, respond with a single JSON object and nothing else:
{"rewritten_query": "...", "alternative_queries": ["..."], "key_terms": ["..."], "synonyms": ["..."]}
Keep the rewritten query close to the user's wording. Do not invent topics.`,
	}

	rerankPrompt = prompt{
		name:    "rerank",
		version: PromptVersion,
		system: `You rerank search results for relevance to a query.
Respond with a single JSON array and nothing else. One entry per candidate:
[{"id": <candidate id>, "ai_score": <integer 0..100>, "reason": "<short>"}]
Include every candidate id exactly once.

Score each candidate as a sum:
- Semantic relevance to the query: up to 40
- Match with the user's intent: up to 30
- Content quality and completeness: up to 20
- Specificity to the query subject: up to 10
Freshness bonus: +5 if published within 30 days, +3 within 90, +1 within 180.`,
	}

	answerPrompt = prompt{
		name:    "answer",
		version: PromptVersion,
		system: `You answer a question using ONLY the numbered sources provided.
Rules, in order:
1. Use only facts stated explicitly in the sources. No outside knowledge.
2. Cite every fact as "Source k" where k is the source number.
3. Never mention a topic absent from the sources, not even to say it is absent.
4. Do not add background or domain context beyond the sources.
5. If the sources do not answer the question, state exactly which of the
   provided facts are known and stop. Do not apologize or speculate.`,
	}

	relaxedAnswerPrompt = prompt{
		name:    "answer_relaxed",
		version: PromptVersion,
		system: `You answer a question using the numbered sources provided.
You may paraphrase and combine facts across sources, but every claim must
be grounded in them. Cite supporting sources as "Source k" where k is the
source number. If the sources do not answer the question, say so briefly.`,
	}

	altQueriesPrompt = prompt{
		name:    "alt_queries",
		version: PromptVersion,
		system: `You suggest follow-up search queries.
Given a query and its top results, respond with a single JSON array of 3 to 5
alternative query strings and nothing else.
Strict rule: every word in every suggestion must appear in the supplied
results or the original query. Never introduce outside terms.`,
	}

	expandPrompt = prompt{
		name:    "expand",
		version: PromptVersion,
		system: `You produce alternative phrasings of a search query.
Respond with plain query strings, one per line, no numbering, no commentary.
Each phrasing must preserve the meaning of the original query.`,
	}
)

// intentAnchors returns explicit scoring anchors for an intent. These are
// appended to the rerank system prompt so the model applies hard ceilings
// rather than vibes.
func intentAnchors(intent string) string {
	switch intent {
	case "person_name":
		return `The query is a person's name.
- A professional or team profile whose title is exactly that name: score 95 or above.
- An article mentioning the person: 60 to 80.
- Generic content that merely contains one of the name tokens: 40 or below.`
	case "executive_role":
		return `The query asks who holds a role.
- A profile or page naming the current holder of that role: 90 or above.
- News about the role or organization: 50 to 75.`
	case "service":
		return `The query looks for a service offering.
- A dedicated service or solutions page: 85 or above.
- Blog posts that discuss the topic: 40 to 70.`
	case "howto":
		return `The query asks how or why.
- Content that directly explains the asked procedure or reason: 80 or above.
- Content on the topic without the explanation: 50 or below.`
	default:
		return ""
	}
}

// buildRerankSystem assembles the rerank system prompt. Caller-supplied
// instructions outrank the rubric and the anchors.
func buildRerankSystem(intent, instructions string) string {
	var b strings.Builder
	b.WriteString(rerankPrompt.system)
	if anchors := intentAnchors(intent); anchors != "" {
		b.WriteString("\n\n")
		b.WriteString(anchors)
	}
	if instructions != "" {
		b.WriteString("\n\nHIGHEST PRIORITY instructions from the caller, overriding the rubric above:\n")
		b.WriteString(instructions)
	}
	return b.String()
}

// freshnessLabel renders a publication age for the rerank prompt.
func freshnessLabel(days int) string {
	switch {
	case days < 0:
		return "undated"
	case days < 30:
		return fmt.Sprintf("%d days ago (fresh)", days)
	case days < 90:
		return fmt.Sprintf("%d days ago (recent)", days)
	case days < 365:
		return fmt.Sprintf("%d days ago", days)
	default:
		return fmt.Sprintf("%.1f years ago", float64(days)/365)
	}
}
