package rag

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Query is a single chat request entering the pipeline.
// Immutable once received.
type Query struct {
	// Message is the user's question. Validated (length, presence) at the
	// transport layer before it reaches the pipeline.
	Message string

	// SelectedText is the textbook excerpt the user highlighted.
	// Non-empty only in contextual mode.
	SelectedText string

	// ChapterSlug narrows retrieval to one chapter when set (contextual mode).
	ChapterSlug string

	// SessionID identifies the conversation. uuid.Nil means the caller did
	// not supply one; the pipeline generates it server-side.
	SessionID uuid.UUID

	// ClientHash is the hashed client identity, used for session bookkeeping.
	ClientHash string
}

// Contextual reports whether the query carries a user-selected excerpt.
func (q Query) Contextual() bool {
	return q.SelectedText != ""
}

// Passage is a retrieved textbook chunk with its similarity score.
// Content is the full chunk text and Score the raw similarity; both stay
// unshaped so classification and generation work on what retrieval found.
// Sequences of passages are always ordered by descending score.
type Passage struct {
	ChapterSlug  string
	ChapterTitle string
	SectionID    string
	Content      string
	Score        float64
}

// Source is the attribution entry on the response envelope: the display
// form of a Passage, with the excerpt truncated, the score rounded, and a
// section title derived from the section ID.
type Source struct {
	ChapterSlug  string  `json:"chapter_slug"`
	ChapterTitle string  `json:"chapter_title"`
	SectionID    string  `json:"section_id,omitempty"`
	SectionTitle string  `json:"section_title,omitempty"`
	Excerpt      string  `json:"excerpt"`
	Score        float64 `json:"score"`
}

// Confidence is the discrete tier derived from retrieval scores.
type Confidence int

const (
	// ConfidenceLow means retrieval found no adequate support; the
	// generator is never invoked and a fixed fallback answer is returned.
	ConfidenceLow Confidence = iota

	// ConfidenceMedium means partial support; an answer is generated but
	// the response always carries a disclaimer.
	ConfidenceMedium

	// ConfidenceHigh means strong support; an answer is generated with no
	// disclaimer.
	ConfidenceHigh
)

// String returns the wire representation of the tier.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON encodes the tier as its lowercase string form.
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a lowercase tier string.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshaling confidence: %w", err)
	}
	switch s {
	case "high":
		*c = ConfidenceHigh
	case "medium":
		*c = ConfidenceMedium
	case "low":
		*c = ConfidenceLow
	default:
		return fmt.Errorf("unknown confidence tier %q", s)
	}
	return nil
}

// Response is the assembled answer envelope returned for every successful
// pipeline run. Created once, never mutated afterward.
type Response struct {
	MessageID  uuid.UUID  `json:"message_id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Answer     string     `json:"answer"`
	Confidence Confidence `json:"confidence"`
	Sources    []Source   `json:"sources"`
	Disclaimer *string    `json:"disclaimer"`
}
