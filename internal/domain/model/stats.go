package model

// Stats aggregates game outcomes. The zero value is the identity for Add.
type Stats struct {
	White     uint64 `json:"white"`
	Draws     uint64 `json:"draws"`
	Black     uint64 `json:"black"`
	RatingSum uint64 `json:"rating_sum"`
}

// Add accumulates rhs into s.
func (s *Stats) Add(rhs Stats) {
	s.White += rhs.White
	s.Draws += rhs.Draws
	s.Black += rhs.Black
	s.RatingSum += rhs.RatingSum
}

// Total is the number of games counted.
func (s Stats) Total() uint64 {
	return s.White + s.Draws + s.Black
}

// AverageRating is the mean of the per-game average ratings, or 0 when empty.
func (s Stats) AverageRating() uint64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return s.RatingSum / total
}

// IsZero reports whether nothing was counted.
func (s Stats) IsZero() bool {
	return s == Stats{}
}

// StatsFor returns the contribution of one finished game.
func StatsFor(winner Color, avgRating uint64) Stats {
	s := Stats{RatingSum: avgRating}
	switch winner {
	case White:
		s.White = 1
	case Black:
		s.Black = 1
	default:
		s.Draws = 1
	}
	return s
}
