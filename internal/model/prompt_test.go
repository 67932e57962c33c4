package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyfork/bookchat/internal/rag"
)

func samplePassages() []rag.Passage {
	return []rag.Passage{
		{ChapterSlug: "ros2-fundamentals", ChapterTitle: "ROS 2 Fundamentals", SectionID: "3.1",
			Content: "Nodes communicate over topics.", Score: 0.91},
		{ChapterSlug: "intro", ChapterTitle: "Introduction to Physical AI",
			Content: "Physical AI combines robotics and ML.", Score: 0.62},
	}
}

func TestFormatContext(t *testing.T) {
	got := formatContext(samplePassages())

	assert.Contains(t, got, "[1] ROS 2 Fundamentals, section 3.1:")
	assert.Contains(t, got, "Nodes communicate over topics.")
	assert.Contains(t, got, "[2] Introduction to Physical AI:")
	assert.NotContains(t, got, "section ,", "empty section IDs must be omitted")
}

func TestBuildPrompt(t *testing.T) {
	t.Run("plain question", func(t *testing.T) {
		got := buildPrompt("How do nodes talk?", samplePassages(), "")

		assert.Contains(t, got, "Student question: How do nodes talk?")
		assert.Contains(t, got, "Textbook context:")
		assert.NotContains(t, got, "highlighted")
	})

	t.Run("selected text question", func(t *testing.T) {
		got := buildPrompt("What does DDS mean here?", samplePassages(), "Topics are built on DDS.")

		assert.Contains(t, got, `"Topics are built on DDS."`)
		assert.Contains(t, got, "Question about the highlighted passage: What does DDS mean here?")
		assert.Contains(t, got, "Related textbook context:")
	})
}
