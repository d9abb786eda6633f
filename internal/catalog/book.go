package catalog

// UnknownAuthor is shown whenever the upstream has no author for a book.
const UnknownAuthor = "Unknown Author"

// SearchResultBook is the detail view of a search hit. Optional fields are
// nil when the upstream did not send them; AuthorsName is always set.
type SearchResultBook struct {
	CoverID          *int64   `json:"cover_id,omitempty"`
	Title            string   `json:"title"`
	AuthorsName      string   `json:"authors_name"`
	AverageRating    *float64 `json:"averageRating,omitempty"`
	RatingOne        *int     `json:"rating_one,omitempty"`
	RatingTwo        *int     `json:"rating_two,omitempty"`
	RatingThree      *int     `json:"rating_three,omitempty"`
	RatingFour       *int     `json:"rating_four,omitempty"`
	RatingFive       *int     `json:"rating_five,omitempty"`
	PublishPlace     *string  `json:"publish_Place,omitempty"`
	Pages            *int     `json:"pages,omitempty"`
	Language         []string `json:"language,omitempty"`
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
}

// SubjectResultBook is the card view of a work in a subject listing.
type SubjectResultBook struct {
	CoverID          *int64 `json:"cover_id,omitempty"`
	Title            string `json:"title"`
	FirstPublishYear *int   `json:"first_publish_year,omitempty"`
	AuthorsName      string `json:"authors_name"`
}

// Suggestion is one typeahead entry.
type Suggestion struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	CoverID *int64 `json:"cover_id,omitempty"`
}

// SubjectPage is a deterministic slice of a subject listing. Total is the
// full listing length so callers know when to stop paging.
type SubjectPage struct {
	Items []SubjectResultBook `json:"items"`
	Total int                 `json:"total"`
}
