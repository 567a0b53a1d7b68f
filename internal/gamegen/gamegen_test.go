package gamegen_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/explorer/internal/adapters/http/api"
	service "github.com/okian/explorer/internal/app"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
	"github.com/okian/explorer/internal/gamegen"
	"github.com/okian/explorer/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRandomGame(t *testing.T) {
	Convey("Given randomly generated games, each replays legally", t, func() {
		now := time.Now().UnixMilli()
		for i := 0; i < 20; i++ {
			sub := gamegen.RandomGame(4, 30, now)
			g := sub.Game

			_, err := model.ParseGameID(string(g.ID))
			So(err, ShouldBeNil)
			So(g.Status.IsOngoing(), ShouldBeFalse)
			So(g.Status.IsUnindexable(), ShouldBeFalse)
			So(g.Speed.Valid(), ShouldBeTrue)
			So(g.CreatedAt, ShouldBeLessThanOrEqualTo, uint64(now))
			So(len(g.SANs()), ShouldBeLessThanOrEqualTo, 30)

			_, avgOK := model.SelectRatingGroup(g.AverageRating())
			So(sub.Indexable, ShouldEqual, g.Rated && avgOK)

			keys, err := opening.Walk("", g.SANs(), 0)
			So(err, ShouldBeNil)
			So(keys[0], ShouldEqual, opening.Key("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"))
		}
	})
}

func TestGenerateGames(t *testing.T) {
	Convey("Given a generator config with repeats", t, func() {
		cfg := &gamegen.Config{NumGames: 40, DuplicatePct: 25, MinPlies: 2, MaxPlies: 6, Workers: 3}
		stats := &gamegen.Stats{}

		subs, err := gamegen.GenerateGames(context.Background(), cfg, stats)
		So(err, ShouldBeNil)

		Convey("Then distinct games get distinct ids and repeats follow them", func() {
			So(len(subs), ShouldEqual, 50)
			ids := make(map[model.GameID]struct{})
			for _, s := range subs[:40] {
				So(s.Repeat, ShouldBeFalse)
				ids[s.Game.ID] = struct{}{}
			}
			So(len(ids), ShouldEqual, 40)
			for _, s := range subs[40:] {
				So(s.Repeat, ShouldBeTrue)
				So(ids, ShouldContainKey, s.Game.ID)
			}
			So(stats.GamesGenerated, ShouldEqual, 40)
			So(stats.GamesIndexable, ShouldBeLessThanOrEqualTo, 40)
		})
	})
}

func TestSubmitGamesAgainstStub(t *testing.T) {
	Convey("Given a service stub that pushes back on every other game", t, func() {
		var n int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n++
			if n%2 == 0 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"status":"accepted","duplicate":false}`))
		}))
		defer srv.Close()

		cfg := &gamegen.Config{BaseURL: srv.URL, Workers: 1, Timeout: time.Second}
		subs := make([]gamegen.Submission, 6)
		for i := range subs {
			subs[i] = gamegen.Submission{Game: model.Game{ID: gamegen.NewGameID()}, Indexable: true}
		}
		stats := &gamegen.Stats{}

		accepted := gamegen.SubmitGames(context.Background(), cfg, subs, stats)

		Convey("Then rejected games count as failures", func() {
			So(accepted, ShouldEqual, 3)
			So(stats.GamesSubmitted, ShouldEqual, 6)
			So(stats.GamesAccepted, ShouldEqual, 3)
			So(stats.GamesFailed, ShouldEqual, 3)
		})
	})
}

func TestRunEndToEnd(t *testing.T) {
	Convey("Given a running explorer service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(1000))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out := filepath.Join(t.TempDir(), "games.ndjson")
		cfg := &gamegen.Config{
			BaseURL:       srv.URL,
			NumGames:      30,
			DuplicatePct:  10,
			MinPlies:      4,
			MaxPlies:      20,
			Workers:       4,
			Timeout:       5 * time.Second,
			SettleTimeout: 10 * time.Second,
			OutputFile:    out,
		}

		Convey("When the generator runs", func() {
			stats, err := gamegen.Run(ctx, cfg)

			Convey("Then every accepted indexable game reaches the start position", func() {
				So(err, ShouldBeNil)
				So(stats.GamesAccepted, ShouldEqual, 30)
				So(stats.GamesDuplicate, ShouldEqual, 3)
				So(stats.GamesFailed, ShouldEqual, 0)
				So(stats.ObservedAtStart, ShouldEqual, uint64(stats.GamesIndexable))
			})

			Convey("Then the distinct games are written as NDJSON", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				So(len(strings.Split(strings.TrimSpace(string(data)), "\n")), ShouldEqual, 30)
			})
		})
	})
}
