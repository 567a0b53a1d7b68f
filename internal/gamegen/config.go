package gamegen

import (
	"time"

	"github.com/okian/explorer/internal/domain/model"
)

// Config holds configuration for a generator run.
type Config struct {
	BaseURL       string        // Base URL of the service
	NumGames      int           // Number of distinct games to generate
	DuplicatePct  int           // Share of games submitted a second time, in percent
	MinPlies      int           // Shortest generated game
	MaxPlies      int           // Longest generated game
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for the index to catch up
	OutputFile    string        // Output file for generated games (NDJSON)
	Verbose       bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	GamesGenerated  int
	GamesIndexable  int
	GamesSubmitted  int
	GamesAccepted   int
	GamesDuplicate  int
	GamesFailed     int
	ExpectedAtStart uint64
	ObservedAtStart uint64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// Submission is one game to POST. Indexable reports whether the service
// should fold it into the index; Repeat marks a deliberate resubmission.
type Submission struct {
	Game      model.Game
	Indexable bool
	Repeat    bool
}

// AckResponse is the body of a POST /games response.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// CellResponse is one cell of a GET /explorer response.
type CellResponse struct {
	Speed       string `json:"speed"`
	RatingGroup string `json:"ratingGroup"`
	White       uint64 `json:"white"`
	Draws       uint64 `json:"draws"`
	Black       uint64 `json:"black"`
}

// ExplorerResponse is the body of a GET /explorer response.
type ExplorerResponse struct {
	Position string         `json:"position"`
	Cells    []CellResponse `json:"cells"`
}

// Total sums the outcomes of every cell.
func (r ExplorerResponse) Total() uint64 {
	var n uint64
	for _, c := range r.Cells {
		n += c.White + c.Draws + c.Black
	}
	return n
}
