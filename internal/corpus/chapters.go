// Package corpus stores textbook chunks and serves vector similarity
// search over them using PostgreSQL + pgvector.
package corpus

import "strings"

// chapterTitles maps chapter slugs to their display titles. Slugs missing
// from the map fall back to a humanized form of the slug so new chapters
// degrade gracefully instead of showing raw identifiers.
var chapterTitles = map[string]string{
	"intro":             "Introduction to Physical AI",
	"humanoid-basics":   "Humanoid Robotics Basics",
	"ros2-fundamentals": "ROS 2 Fundamentals",
	"digital-twin":      "Digital Twin Simulation",
	"vla-systems":       "Vision-Language-Action Systems",
	"capstone":          "Capstone Project",
}

// ChapterTitle resolves the display title for a chapter slug.
func ChapterTitle(slug string) string {
	if title, ok := chapterTitles[slug]; ok {
		return title
	}
	return humanizeSlug(slug)
}

func humanizeSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
