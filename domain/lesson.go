package domain

import "time"

// Lesson is a short natural language note distilled from a past outcome
// ("Adyen declines spike for MX debit after 22:00"). Lessons live in the
// lesson store with an embedding so similar transactions can recall them.
type Lesson struct {
	Key       string         `json:"key"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// LessonMatch is a lesson with its similarity score against the query.
type LessonMatch struct {
	Lesson Lesson  `json:"lesson"`
	Score  float64 `json:"score"`
}
