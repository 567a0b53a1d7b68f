package gamegen

import "time"

// Submission outcomes.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// Generation constants.
const (
	minRating       = 1400
	ratingSpread    = 1600
	casualOneIn     = 10
	idAlphabet      = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	createdAtSpread = int64(365 * 24 * time.Hour / time.Millisecond)
)

// Runner configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	settlePollInterval      = 200 * time.Millisecond
	progressInterval        = time.Second
	maxAckBytes             = 1 << 16
)
