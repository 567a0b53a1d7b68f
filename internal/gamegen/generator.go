package gamegen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notnil/chess"

	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/pkg/logger"
)

// randIntn returns a uniform value in [0, n) using crypto/rand.
func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// NewGameID derives an 8 character alphanumeric id from a random UUID.
func NewGameID() model.GameID {
	u := uuid.New()
	var b strings.Builder
	b.Grow(model.GameIDLen)
	for i := 0; i < model.GameIDLen; i++ {
		b.WriteByte(idAlphabet[int(u[i])%len(idAlphabet)])
	}
	return model.GameID(b.String())
}

// GenerateGames creates cfg.NumGames random finished games plus the repeats
// requested by cfg.DuplicatePct, concurrently.
func GenerateGames(ctx context.Context, cfg *Config, stats *Stats) ([]Submission, error) {
	logger.Get().Info(ctx, "generating games", logger.Int("numGames", cfg.NumGames))

	games := make([]Submission, cfg.NumGames)
	type result struct {
		index int
		sub   Submission
	}
	resultChan := make(chan result, cfg.NumGames)

	workerCount := max(1, min(cfg.Workers, cfg.NumGames))
	perWorker := cfg.NumGames / workerCount
	now := time.Now().UnixMilli()
	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = cfg.NumGames
		}
		go func(start, end int) {
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return
				}
				resultChan <- result{index: i, sub: RandomGame(cfg.MinPlies, cfg.MaxPlies, now)}
			}
		}(start, end)
	}

	seen := make(map[model.GameID]struct{}, cfg.NumGames)
	for i := 0; i < cfg.NumGames; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("game generation cancelled: %w", ctx.Err())
		case r := <-resultChan:
			// A uuid prefix collision would otherwise show up as a spurious duplicate.
			for {
				if _, dup := seen[r.sub.Game.ID]; !dup {
					break
				}
				r.sub.Game.ID = NewGameID()
			}
			seen[r.sub.Game.ID] = struct{}{}
			games[r.index] = r.sub
			if r.sub.Indexable {
				stats.GamesIndexable++
			}
		}
	}

	repeats := cfg.NumGames * cfg.DuplicatePct / PercentageMultiplier
	for i := 0; i < repeats; i++ {
		again := games[randIntn(cfg.NumGames)]
		again.Repeat = true
		games = append(games, again)
	}

	stats.GamesGenerated = cfg.NumGames
	logger.Get().Info(ctx, "generated games",
		logger.Int("count", cfg.NumGames),
		logger.Int("indexable", stats.GamesIndexable),
		logger.Int("repeats", repeats))
	return games, nil
}

// RandomGame plays random legal moves from the standard start and wraps the
// result as a finished lichess game. createdBefore bounds the creation time
// in unix milliseconds.
func RandomGame(minPlies, maxPlies int, createdBefore int64) Submission {
	if maxPlies < minPlies {
		maxPlies = minPlies
	}
	target := minPlies + randIntn(maxPlies-minPlies+1)

	cg := chess.NewGame()
	sans := make([]string, 0, target)
	for len(sans) < target && cg.Outcome() == chess.NoOutcome {
		moves := cg.ValidMoves()
		m := moves[randIntn(len(moves))]
		sans = append(sans, chess.AlgebraicNotation{}.Encode(cg.Position(), m))
		if err := cg.Move(m); err != nil {
			break
		}
	}

	status, winner := finish(cg)
	speeds := model.Speeds()
	g := model.Game{
		ID:        NewGameID(),
		Rated:     randIntn(casualOneIn) != 0,
		CreatedAt: uint64(createdBefore - int64(randIntn(int(createdAtSpread)))),
		Status:    status,
		Variant:   model.VariantStandard,
		Speed:     speeds[randIntn(len(speeds))],
		Moves:     strings.Join(sans, " "),
		Winner:    winner,
	}
	g.Players.White = model.Player{User: model.User{Name: "white_" + string(g.ID)}, Rating: minRating + randIntn(ratingSpread)}
	g.Players.Black = model.Player{User: model.User{Name: "black_" + string(g.ID)}, Rating: minRating + randIntn(ratingSpread)}

	_, ratedHigh := model.SelectRatingGroup(g.AverageRating())
	return Submission{Game: g, Indexable: g.Rated && ratedHigh}
}

// finish picks a status and winner consistent with the final position.
func finish(cg *chess.Game) (model.Status, model.Color) {
	switch cg.Outcome() {
	case chess.WhiteWon:
		return model.StatusMate, model.White
	case chess.BlackWon:
		return model.StatusMate, model.Black
	case chess.Draw:
		if cg.Method() == chess.Stalemate {
			return model.StatusStalemate, model.NoColor
		}
		return model.StatusDraw, model.NoColor
	}
	switch randIntn(4) {
	case 0:
		return model.StatusDraw, model.NoColor
	case 1:
		return model.StatusOutOfTime, randomColor()
	default:
		return model.StatusResign, randomColor()
	}
}

func randomColor() model.Color {
	if randIntn(2) == 0 {
		return model.White
	}
	return model.Black
}
