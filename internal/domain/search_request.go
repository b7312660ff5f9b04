package domain

// SearchRequest holds the optional criteria of a structured search.
// IncidentTypeNone means "no type criterion".
type SearchRequest struct {
	IncidentType IncidentType
	Latitude     *float64 `validate:"omitempty,lat"`
	Longitude    *float64 `validate:"omitempty,lng"`
	Timestamp    *DateTime
}

// ReindexResult reports the outcome of a full index rebuild.
type ReindexResult struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	// Skipped counts rows deleted between the listing and their turn.
	Skipped int `json:"skipped"`
}
