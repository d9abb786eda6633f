package openlibrary

import (
	"encoding/json"
	"strings"
)

// Upstream documents are untrusted: every field may be missing, so optional
// scalars are pointers and nil means "absent".

// SearchResponse matches /search.json
type SearchResponse struct {
	NumFound int         `json:"numFound"`
	Start    int         `json:"start"`
	Docs     []SearchDoc `json:"docs"`
}

// SearchDoc is one hit of /search.json
type SearchDoc struct {
	Key                 string     `json:"key,omitempty"`
	Title               string     `json:"title,omitempty"`
	CoverI              *int64     `json:"cover_i,omitempty"`
	AuthorName          StringList `json:"author_name,omitempty"`
	RatingsAverage      *float64   `json:"ratings_average,omitempty"`
	RatingsCount1       *int       `json:"ratings_count_1,omitempty"`
	RatingsCount2       *int       `json:"ratings_count_2,omitempty"`
	RatingsCount3       *int       `json:"ratings_count_3,omitempty"`
	RatingsCount4       *int       `json:"ratings_count_4,omitempty"`
	RatingsCount5       *int       `json:"ratings_count_5,omitempty"`
	PublishPlace        StringList `json:"publish_place,omitempty"`
	NumberOfPagesMedian *int       `json:"number_of_pages_median,omitempty"`
	Language            StringList `json:"language,omitempty"`
	FirstPublishYear    *int       `json:"first_publish_year,omitempty"`
}

// SubjectResponse matches /subjects/{subject}.json
type SubjectResponse struct {
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	WorkCount int    `json:"work_count"`
	Works     []Work `json:"works"`
}

// Work is one entry of a subject listing
type Work struct {
	Key              string       `json:"key,omitempty"`
	Title            string       `json:"title,omitempty"`
	CoverID          *int64       `json:"cover_id,omitempty"`
	FirstPublishYear *int         `json:"first_publish_year,omitempty"`
	Authors          []WorkAuthor `json:"authors,omitempty"`
}

type WorkAuthor struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

func (r *SearchResponse) UnmarshalJSON(b []byte) error {
	type plain SearchResponse
	return decodeLenient(b, (*plain)(r))
}

func (d *SearchDoc) UnmarshalJSON(b []byte) error {
	type plain SearchDoc
	// a list entry that is not an object is kept as an empty one
	_ = decodeLenient(b, (*plain)(d))
	return nil
}

func (r *SubjectResponse) UnmarshalJSON(b []byte) error {
	type plain SubjectResponse
	return decodeLenient(b, (*plain)(r))
}

func (w *Work) UnmarshalJSON(b []byte) error {
	type plain Work
	// a list entry that is not an object is kept as an empty one
	_ = decodeLenient(b, (*plain)(w))
	return nil
}

func (a *WorkAuthor) UnmarshalJSON(b []byte) error {
	type plain WorkAuthor
	// a list entry that is not an object is kept as an empty one
	_ = decodeLenient(b, (*plain)(a))
	return nil
}

// decodeLenient decodes the JSON object b into out. A field whose value has
// the wrong type is dropped as if absent instead of failing the document.
// A value that is not an object leaves out zeroed and returns the error.
func decodeLenient[T any](b []byte, out *T) error {
	var v T
	if err := json.Unmarshal(b, &v); err == nil {
		*out = v
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		var zero T
		*out = zero
		return err
	}

	var res T
	for name, raw := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: raw})
		if err != nil {
			continue
		}
		tmp := res
		if json.Unmarshal(one, &tmp) == nil {
			res = tmp
		}
	}
	*out = res
	return nil
}

// StringList accepts either a JSON string or an array of strings; the
// upstream is inconsistent about which one it sends.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(b, &ss); err != nil {
		return err
	}
	*l = ss
	return nil
}

// First returns the first non-blank element.
func (l StringList) First() (string, bool) {
	for _, s := range l {
		if strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}
