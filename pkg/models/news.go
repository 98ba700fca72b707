package models

import "time"

// NewsItem is one piece of financial news supplied by the caller.
// The analysis pipeline only reads it.
type NewsItem struct {
	ID          string    `json:"id,omitempty"           yaml:"id,omitempty"`
	Title       string    `json:"title"                  yaml:"title"   validate:"required"`
	Content     string    `json:"content"                yaml:"content"`
	Source      string    `json:"source"                 yaml:"source"`
	Date        string    `json:"date,omitempty"         yaml:"date,omitempty"` // YYYY-MM-DD, grouping only
	URL         string    `json:"url,omitempty"          yaml:"url,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"  yaml:"published_at,omitempty"`
}

// Original returns the back-reference stored on every AnalysisResult.
func (n NewsItem) Original() OriginalNews {
	return OriginalNews{
		Title:   n.Title,
		Content: n.Content,
		Source:  n.Source,
	}
}

// OriginalNews is the traceability copy of the analyzed item.
type OriginalNews struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}
