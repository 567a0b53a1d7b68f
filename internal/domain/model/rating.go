package model

import (
	"fmt"
	"strconv"
)

// RatingGroup is a rating band identified by its lower bound. Each band runs
// up to the next band's bound; the last one is open above.
type RatingGroup uint8

// Known rating groups.
const (
	Group1600 RatingGroup = iota
	Group1800
	Group2000
	Group2200
	Group2500
	Group2800
	Group3200
)

// NumRatingGroups is the size of the closed RatingGroup set.
const NumRatingGroups = 7

var ratingBounds = [NumRatingGroups]int{
	Group1600: 1600,
	Group1800: 1800,
	Group2000: 2000,
	Group2200: 2200,
	Group2500: 2500,
	Group2800: 2800,
	Group3200: 3200,
}

// RatingGroups returns every rating group in increasing order.
func RatingGroups() []RatingGroup {
	return []RatingGroup{Group1600, Group1800, Group2000, Group2200, Group2500, Group2800, Group3200}
}

// Valid reports whether g is one of the known rating groups.
func (g RatingGroup) Valid() bool { return g < NumRatingGroups }

// LowerBound returns the smallest rating in the band.
func (g RatingGroup) LowerBound() int {
	if !g.Valid() {
		return -1
	}
	return ratingBounds[g]
}

func (g RatingGroup) String() string {
	if !g.Valid() {
		return fmt.Sprintf("RatingGroup(%d)", uint8(g))
	}
	return strconv.Itoa(ratingBounds[g])
}

// MarshalText writes the lower bound, e.g. "2000".
func (g RatingGroup) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("invalid rating group %d", uint8(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText accepts a lower bound, e.g. "2000".
func (g *RatingGroup) UnmarshalText(text []byte) error {
	bound, err := strconv.Atoi(string(text))
	if err != nil {
		return fmt.Errorf("invalid rating group %q: %w", text, err)
	}
	for i, b := range ratingBounds {
		if b == bound {
			*g = RatingGroup(i)
			return nil
		}
	}
	return fmt.Errorf("unknown rating group %q", text)
}

// SelectRatingGroup returns the band containing avg. Ratings below the
// lowest bound are not indexed and report false.
func SelectRatingGroup(avg int) (RatingGroup, bool) {
	if avg < ratingBounds[Group1600] {
		return 0, false
	}
	g := Group1600
	for i := Group1800; i < NumRatingGroups; i++ {
		if avg < ratingBounds[i] {
			break
		}
		g = i
	}
	return g, true
}
