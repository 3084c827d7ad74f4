package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Rewrite asks the model to reformulate a query. Parse failures fall back
// to the original query so the search path never loses its input.
func (c *Client) Rewrite(ctx context.Context, query, intent string) (*RewriteResult, error) {
	user := fmt.Sprintf("Intent: %s\nQuery: %s", intent, query)
	raw, tokens, err := c.complete(ctx, rewritePrompt.name, rewritePrompt.system, user, 300)
	if err != nil {
		return nil, err
	}

	var res RewriteResult
	if err := decodeJSON(raw, &res); err != nil || strings.TrimSpace(res.RewrittenQuery) == "" {
		slog.Warn("rewrite output unparseable, keeping original query",
			slog.String("query", query))
		res = RewriteResult{RewrittenQuery: query}
	}
	res.TokensUsed = tokens
	return &res, nil
}

// ExpandQuery returns up to max alternative phrasings, parsed one per line.
func (c *Client) ExpandQuery(ctx context.Context, query string, max int) ([]string, error) {
	user := fmt.Sprintf("Query: %s\nProduce up to %d alternative phrasings.", query, max)
	raw, _, err := c.complete(ctx, expandPrompt.name, expandPrompt.system, user, 200)
	if err != nil {
		return nil, err
	}
	lines := parseLines(raw)
	if len(lines) > max {
		lines = lines[:max]
	}
	return lines, nil
}
