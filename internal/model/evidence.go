package model

import "encoding/json"

// Evidence is the structured search document fetched for one query.
// It lives only for the duration of a pipeline run and is never
// persisted. Raw keeps the full provider response so the judge prompt
// builder can degrade gracefully when the parsed fields are empty.
type Evidence struct {
	Query          string          `json:"query"`
	SearchID       string          `json:"search_id,omitempty"`
	Organic        []OrganicResult `json:"organic,omitempty"`
	AnswerBox      string          `json:"answer_box,omitempty"`
	KnowledgeGraph string          `json:"knowledge_graph,omitempty"`
	Raw            json.RawMessage `json:"-"`

	// Links is filled in by the verify package after the fetch. A nil
	// slice means no verification ran; the judge treats both the same.
	Links []LinkCheck `json:"links,omitempty"`
}

// OrganicResult is one ranked result from the search provider.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
	Source   string `json:"source,omitempty"`
}

// LinkCheck records whether a result URL was reachable at judge time.
type LinkCheck struct {
	URL        string `json:"url"`
	Live       bool   `json:"live"`
	StatusCode int    `json:"status_code,omitempty"`
	Title      string `json:"title,omitempty"`
	Error      string `json:"error,omitempty"`
}
