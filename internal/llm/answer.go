package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var citationPattern = regexp.MustCompile(`Source (\d+)`)

// Answer synthesizes an answer from the numbered sources, extractive-only
// in strict mode. Citations in the text are parsed back into source ids.
func (c *Client) Answer(ctx context.Context, query string, sources []Source, strict bool) (*AnswerResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSources:\n", query)
	for _, s := range sources {
		fmt.Fprintf(&b, "Source %d: %s\n%s\n\n", s.Ordinal, s.Title, s.Excerpt)
	}

	p := answerPromptFor(strict)
	raw, tokens, err := c.complete(ctx, p.name, p.system, b.String(), 500)
	if err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(raw)
	cited := map[int]bool{}
	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		if id, err := strconv.Atoi(m[1]); err == nil {
			cited[id] = true
		}
	}
	ids := make([]int, 0, len(cited))
	for id := range cited {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return &AnswerResult{Answer: answer, CitedSourceIDs: ids, TokensUsed: tokens}, nil
}

func answerPromptFor(strict bool) prompt {
	if strict {
		return answerPrompt
	}
	return relaxedAnswerPrompt
}

// AlternativeQueries proposes follow-up queries built from the result set.
func (c *Client) AlternativeQueries(ctx context.Context, query string, results []Source) (*AltQueriesResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query: %s\n\nTop results:\n", query)
	for _, s := range results {
		fmt.Fprintf(&b, "- %s: %s\n", s.Title, s.Excerpt)
	}

	raw, tokens, err := c.complete(ctx, altQueriesPrompt.name, altQueriesPrompt.system, b.String(), 200)
	if err != nil {
		return nil, err
	}

	var queries []string
	if err := decodeJSON(raw, &queries); err != nil {
		queries = parseLines(raw)
	}

	seen := map[string]bool{}
	out := make([]string, 0, 5)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] || key == strings.ToLower(query) {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == 5 {
			break
		}
	}
	return &AltQueriesResult{Queries: out, TokensUsed: tokens}, nil
}
