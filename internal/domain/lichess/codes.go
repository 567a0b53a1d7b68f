package lichess

import "github.com/okian/explorer/internal/domain/model"

// Wire codes are fixed by the format. They are kept apart from the Go
// constant values so reordering declarations cannot change stored bytes.
// Speed code 0 is reserved for the End header.
var (
	speedToCode = [model.Correspondence + 1]byte{
		model.UltraBullet:    1,
		model.Bullet:         2,
		model.Blitz:          3,
		model.Rapid:          4,
		model.Classical:      5,
		model.Correspondence: 6,
	}
	codeToSpeed = [...]model.Speed{
		1: model.UltraBullet,
		2: model.Bullet,
		3: model.Blitz,
		4: model.Rapid,
		5: model.Classical,
		6: model.Correspondence,
	}

	ratingGroupToCode = [model.NumRatingGroups]byte{
		model.Group1600: 0,
		model.Group1800: 1,
		model.Group2000: 2,
		model.Group2200: 3,
		model.Group2500: 4,
		model.Group2800: 5,
		model.Group3200: 6,
	}
	codeToRatingGroup = [...]model.RatingGroup{
		0: model.Group1600,
		1: model.Group1800,
		2: model.Group2000,
		3: model.Group2200,
		4: model.Group2500,
		5: model.Group2800,
		6: model.Group3200,
	}
)

const (
	maxSpeedCode       = 6
	maxRatingGroupCode = 6
)
