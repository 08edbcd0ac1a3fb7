package catalog

import (
	"sort"

	"cine-shelf/storage"
)

// RatingGroup is every title sharing one rating.
type RatingGroup struct {
	Rating float64
	Titles []string
}

// Stats summarizes the ratings in a catalog.
type Stats struct {
	Count   int
	Mean    float64
	Median  float64
	Highest RatingGroup
	Lowest  RatingGroup
}

// Stats computes count, mean, median and the full sets of best and worst
// rated titles. Titles inside a group keep catalog order.
func (s *Service) Stats() (Stats, error) {
	movies, err := s.List()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(movies)
}

// ComputeStats is Stats over an already loaded list.
func ComputeStats(movies []storage.Movie) (Stats, error) {
	if len(movies) == 0 {
		return Stats{}, ErrEmptyCatalog
	}

	ratings := make([]float64, len(movies))
	var sum float64
	highest := RatingGroup{Rating: movies[0].Rating}
	lowest := RatingGroup{Rating: movies[0].Rating}

	for i, m := range movies {
		ratings[i] = m.Rating
		sum += m.Rating

		switch {
		case m.Rating > highest.Rating:
			highest = RatingGroup{Rating: m.Rating, Titles: []string{m.Title}}
		case m.Rating == highest.Rating:
			highest.Titles = append(highest.Titles, m.Title)
		}
		switch {
		case m.Rating < lowest.Rating:
			lowest = RatingGroup{Rating: m.Rating, Titles: []string{m.Title}}
		case m.Rating == lowest.Rating:
			lowest.Titles = append(lowest.Titles, m.Title)
		}
	}

	return Stats{
		Count:   len(movies),
		Mean:    sum / float64(len(movies)),
		Median:  median(ratings),
		Highest: highest,
		Lowest:  lowest,
	}, nil
}

// median sorts values in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// SortedByRating returns every movie, best rated first. Equal ratings keep
// catalog order.
func (s *Service) SortedByRating() ([]storage.Movie, error) {
	movies, err := s.List()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(movies, func(i, j int) bool {
		return movies[i].Rating > movies[j].Rating
	})
	return movies, nil
}
