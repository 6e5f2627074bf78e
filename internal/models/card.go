package models

// Card is a single prompt (black) or response (white) card from the catalog.
type Card struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
