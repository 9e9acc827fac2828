package types

// DefaultPageSize is used when neither the request nor the config sets one.
const DefaultPageSize = 6

// PageRequest is a 1-based page number and a page size.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request to sane values, using fallback as the size
// when none was given.
func (p PageRequest) Normalize(fallback int) PageRequest {
	if fallback < 1 {
		fallback = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = fallback
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is the paginated response envelope.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
