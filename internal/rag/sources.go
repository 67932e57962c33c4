package rag

import (
	"math"
	"strings"
)

// excerptLimit bounds source excerpts on the response envelope. Shaping
// happens only here, at response assembly; the generator always grounds on
// the full chunk text.
const excerptLimit = 200

// buildSources converts retrieved passages into their display form:
// excerpt truncated to excerptLimit runes, score rounded to three decimals,
// section title derived from the section ID. Order is preserved.
func buildSources(passages []Passage) []Source {
	sources := make([]Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, Source{
			ChapterSlug:  p.ChapterSlug,
			ChapterTitle: p.ChapterTitle,
			SectionID:    p.SectionID,
			SectionTitle: sectionTitle(p.SectionID),
			Excerpt:      truncateExcerpt(p.Content),
			Score:        math.Round(p.Score*1000) / 1000,
		})
	}
	return sources
}

// sectionTitle derives a display title from section IDs of the form
// "chapter#section-slug". IDs without a fragment carry no title.
func sectionTitle(sectionID string) string {
	parts := strings.Split(sectionID, "#")
	if len(parts) < 2 || parts[1] == "" {
		return ""
	}
	words := strings.Split(parts[1], "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func truncateExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLimit {
		return content
	}
	return string(runes[:excerptLimit]) + "..."
}
