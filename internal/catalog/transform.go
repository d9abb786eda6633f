package catalog

import (
	"strings"

	"github.com/briangreenhill/shelfscout/openlibrary"
)

// TransformSearchResult maps a raw search hit to a SearchResultBook.
func TransformSearchResult(doc openlibrary.SearchDoc) SearchResultBook {
	b := SearchResultBook{
		CoverID:          doc.CoverI,
		Title:            doc.Title,
		AuthorsName:      firstAuthor(doc.AuthorName),
		AverageRating:    doc.RatingsAverage,
		RatingOne:        doc.RatingsCount1,
		RatingTwo:        doc.RatingsCount2,
		RatingThree:      doc.RatingsCount3,
		RatingFour:       doc.RatingsCount4,
		RatingFive:       doc.RatingsCount5,
		Pages:            doc.NumberOfPagesMedian,
		FirstPublishYear: doc.FirstPublishYear,
	}
	if len(doc.PublishPlace) > 0 {
		place := strings.Join(doc.PublishPlace, ", ")
		b.PublishPlace = &place
	}
	if len(doc.Language) > 0 {
		b.Language = append([]string(nil), doc.Language...)
	}
	return b
}

// TransformSubjectResult maps a work from a subject listing to a
// SubjectResultBook, using the first listed author.
func TransformSubjectResult(w openlibrary.Work) SubjectResultBook {
	author := UnknownAuthor
	if len(w.Authors) > 0 && strings.TrimSpace(w.Authors[0].Name) != "" {
		author = w.Authors[0].Name
	}
	return SubjectResultBook{
		CoverID:          w.CoverID,
		Title:            w.Title,
		FirstPublishYear: w.FirstPublishYear,
		AuthorsName:      author,
	}
}

// SearchResults transforms at most n docs of a search payload.
func SearchResults(res *openlibrary.SearchResponse, n int) []SearchResultBook {
	if res == nil {
		return []SearchResultBook{}
	}
	docs := res.Docs
	if n >= 0 && len(docs) > n {
		docs = docs[:n]
	}
	out := make([]SearchResultBook, 0, len(docs))
	for _, d := range docs {
		out = append(out, TransformSearchResult(d))
	}
	return out
}

func transformWorks(works []openlibrary.Work) []SubjectResultBook {
	out := make([]SubjectResultBook, 0, len(works))
	for _, w := range works {
		out = append(out, TransformSubjectResult(w))
	}
	return out
}

func toSuggestion(doc openlibrary.SearchDoc) Suggestion {
	return Suggestion{
		Title:   doc.Title,
		Author:  firstAuthor(doc.AuthorName),
		CoverID: doc.CoverI,
	}
}

func firstAuthor(names openlibrary.StringList) string {
	if name, ok := names.First(); ok {
		return name
	}
	return UnknownAuthor
}
