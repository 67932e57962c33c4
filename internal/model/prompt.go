package model

import (
	"fmt"
	"strings"

	"github.com/studyfork/bookchat/internal/rag"
)

// systemPrompt pins the assistant to the textbook. Answers must come from
// the provided context, cite chapters, and admit gaps rather than invent.
const systemPrompt = `You are a teaching assistant for a Physical AI and humanoid robotics textbook.

Rules:
1. Answer ONLY from the provided textbook context. Never invent facts.
2. When the context does not fully cover the question, say which part you cannot answer.
3. Cite the chapter you draw from, e.g. "According to the ROS 2 Fundamentals chapter...".
4. Keep answers focused and instructional. Prefer short worked explanations over lists of facts.
5. Use the student's terminology where it matches the textbook's.`

// formatContext renders retrieved passages into the numbered block the
// prompts reference.
func formatContext(passages []rag.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s", i+1, p.ChapterTitle)
		if p.SectionID != "" {
			fmt.Fprintf(&b, ", section %s", p.SectionID)
		}
		fmt.Fprintf(&b, ":\n%s\n\n", p.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildPrompt assembles the user-turn prompt. When selectedText is present
// the student is asking about a specific passage they highlighted, and the
// prompt asks for an explanation anchored to that excerpt.
func buildPrompt(query string, passages []rag.Passage, selectedText string) string {
	context := formatContext(passages)

	if selectedText != "" {
		return fmt.Sprintf(
			"The student highlighted this passage in the textbook:\n\n%q\n\n"+
				"Related textbook context:\n%s\n\n"+
				"Question about the highlighted passage: %s\n\n"+
				"Explain with reference to the highlighted passage first, then the wider context.",
			selectedText, context, query)
	}

	return fmt.Sprintf(
		"Textbook context:\n%s\n\nStudent question: %s",
		context, query)
}
