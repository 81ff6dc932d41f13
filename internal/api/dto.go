package api

import "github.com/starford/enigma/internal/docservice"

// DocumentItem is one indexed document (aliased from the domain layer).
type DocumentItem = docservice.DocumentItem

// Cell is a traversed (staff, measure) cell (aliased from the domain layer).
// Elapsed, actual and end times are exact fractions of a whole note encoded
// as "n/d" strings.
type Cell = docservice.Cell

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentItem `json:"documents" validate:"required"`
	Total     int            `json:"total" example:"3" validate:"required"`
}

// IssuesResponse lists the consistency violations of one document.
type IssuesResponse struct {
	Path   string   `json:"path" example:"scores/quartet.enigmaxml" validate:"required"`
	Issues []string `json:"issues" validate:"required"`
}
