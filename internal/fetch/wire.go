package fetch

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sitequery/sitequery/internal/model"
)

// wireDocument mirrors the WordPress REST representation of a content item.
type wireDocument struct {
	ID       int64    `json:"id"`
	Date     string   `json:"date"`
	Link     string   `json:"link"`
	Title    rendered `json:"title"`
	Content  rendered `json:"content"`
	Excerpt  rendered `json:"excerpt"`
	Embedded struct {
		Author []struct {
			Name string `json:"name"`
		} `json:"author"`
		Terms [][]wireTerm `json:"wp:term"`
		Media []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

type rendered struct {
	Rendered string `json:"rendered"`
}

type wireTerm struct {
	Taxonomy string `json:"taxonomy"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
}

// toDocument converts the wire representation to the internal model,
// stripping markup from the rendered fields.
func (w wireDocument) toDocument(contentType string) *model.Document {
	doc := &model.Document{
		ID:      strconv.FormatInt(w.ID, 10),
		Title:   StripHTML(w.Title.Rendered),
		Body:    StripHTML(w.Content.Rendered),
		Excerpt: StripHTML(w.Excerpt.Rendered),
		Type:    contentType,
		URL:     w.Link,
	}
	if t, err := time.Parse("2006-01-02T15:04:05", w.Date); err == nil {
		doc.PublishedAt = &t
	} else if t, err := time.Parse(time.RFC3339, w.Date); err == nil {
		doc.PublishedAt = &t
	}
	if len(w.Embedded.Author) > 0 {
		doc.Author = w.Embedded.Author[0].Name
	}
	if len(w.Embedded.Media) > 0 {
		doc.FeaturedImage = w.Embedded.Media[0].SourceURL
	}
	for _, group := range w.Embedded.Terms {
		for _, t := range group {
			term := model.Term{Slug: t.Slug, Name: t.Name}
			switch t.Taxonomy {
			case "category":
				doc.Categories = append(doc.Categories, term)
			case "post_tag":
				doc.Tags = append(doc.Tags, term)
			}
		}
	}
	doc.WordCount = len(strings.Fields(doc.Body))
	return doc
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	blockPattern  = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|blockquote|tr)>|<br\s*/?>`)
	spacePattern  = regexp.MustCompile(`[ \t]+`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// StripHTML converts rendered HTML to plain text. Block-level closers
// become paragraph breaks so the chunker sees document structure.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = scriptPattern.ReplaceAllString(s, " ")
	s = blockPattern.ReplaceAllString(s, "\n\n")
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
