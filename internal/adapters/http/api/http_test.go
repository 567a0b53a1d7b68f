package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/explorer/internal/adapters/http/api"
	"github.com/okian/explorer/internal/adapters/mq/queue"
	"github.com/okian/explorer/internal/adapters/repository"
	service "github.com/okian/explorer/internal/app"
	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	"github.com/okian/explorer/internal/domain/opening"
)

type mockDeps struct {
	mu         sync.Mutex
	seen       map[model.GameID]bool
	enqueued   []model.Game
	enqueueErr error
	imported   []string
	importErr  error
	entry      lichess.Entry
	lookupErr  error
}

func newMockDeps() *mockDeps {
	return &mockDeps{seen: make(map[model.GameID]bool)}
}

func (m *mockDeps) SeenAndRecord(_ context.Context, id model.GameID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeps) Unrecord(_ context.Context, id model.GameID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeps) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

func (m *mockDeps) Enqueue(_ context.Context, g model.Game) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, g)
	return nil
}

func (m *mockDeps) ImportUser(_ context.Context, user string) error {
	if m.importErr != nil {
		return m.importErr
	}
	m.imported = append(m.imported, user)
	return nil
}

func (m *mockDeps) Lookup(_ context.Context, fen string) (opening.Key, lichess.Entry, error) {
	key, err := opening.ParseKey(fen)
	if err != nil {
		return "", lichess.Entry{}, err
	}
	if m.lookupErr != nil {
		return key, lichess.Entry{}, m.lookupErr
	}
	return key, m.entry, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"started": true, "positions": 7}
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const gameBody = `{"id":"abcd1234","rated":true,"variant":"standard","speed":"rapid","createdAt":1700000000000,"status":"mate",` +
	`"players":{"white":{"user":{"name":"a"},"rating":1900},"black":{"user":{"name":"b"},"rating":1950}},"moves":"e4 e5","winner":"white"}`

func TestPostGame(t *testing.T) {
	Convey("Given the API over mock dependencies", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a valid game is posted", func() {
			rec := do(mux, http.MethodPost, "/games", gameBody)

			Convey("Then it is accepted and enqueued", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].Speed, ShouldEqual, model.Rapid)
				So(deps.enqueued[0].Winner, ShouldEqual, model.White)
			})

			Convey("Then posting it again is acknowledged as a duplicate", func() {
				again := do(mux, http.MethodPost, "/games", gameBody)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = queue.ErrFull
			rec := do(mux, http.MethodPost, "/games", gameBody)

			Convey("Then 429 is returned and the id is forgotten", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(deps.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the queue is closed", func() {
			deps.enqueueErr = queue.ErrClosed
			rec := do(mux, http.MethodPost, "/games", gameBody)

			Convey("Then 503 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the body is malformed", func() {
			for _, body := range []string{`{`, `{"id":"short"}`, `{"speed":"blitz"}`, `{"id":"abcd1234","speed":"hyper"}`} {
				rec := do(mux, http.MethodPost, "/games", body)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("When the method is wrong", func() {
			So(do(mux, http.MethodGet, "/games", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostImport(t *testing.T) {
	Convey("Given the API over mock dependencies", t, func() {
		deps := newMockDeps()
		mux := newMux(deps)

		Convey("When a user import is requested", func() {
			rec := do(mux, http.MethodPost, "/import/DrNykterstein", "")

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.imported, ShouldResemble, []string{"DrNykterstein"})
			})
		})

		Convey("When the path has no user", func() {
			So(do(mux, http.MethodPost, "/import/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/import/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service refuses the import", func() {
			cases := map[error]int{
				fmt.Errorf("wrap: %w", service.ErrImportRunning): http.StatusConflict,
				service.ErrImportBusy:                            http.StatusTooManyRequests,
				service.ErrNotStarted:                            http.StatusInternalServerError,
			}
			for err, code := range cases {
				deps.importErr = err
				So(do(mux, http.MethodPost, "/import/someone", "").Code, ShouldEqual, code)
			}
		})
	})
}

func TestGetExplorer(t *testing.T) {
	Convey("Given an entry with one cell", t, func() {
		deps := newMockDeps()
		cell := lichess.Cell{Speed: model.Blitz, RatingGroup: model.Group2200}
		So(deps.entry.Add(cell, lichess.Group{
			Stats: model.Stats{White: 2, Black: 1, RatingSum: 3 * 2300},
			Games: []lichess.GameRef{{CreatedAt: 5, ID: "abcd1234"}},
		}), ShouldBeNil)
		mux := newMux(deps)

		Convey("When the start position is requested", func() {
			rec := do(mux, http.MethodGet, "/explorer?fen="+strings.ReplaceAll(opening.StartFEN, " ", "+"), "")

			Convey("Then its cells are returned by name", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Position string `json:"position"`
					Cells    []struct {
						Speed         string `json:"speed"`
						RatingGroup   string `json:"ratingGroup"`
						White         uint64 `json:"white"`
						Black         uint64 `json:"black"`
						AverageRating uint64 `json:"averageRating"`
						Games         []struct {
							ID string `json:"id"`
						} `json:"games"`
					} `json:"cells"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Position, ShouldEqual, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -")
				So(len(body.Cells), ShouldEqual, 1)
				So(body.Cells[0].Speed, ShouldEqual, "blitz")
				So(body.Cells[0].RatingGroup, ShouldEqual, "2200")
				So(body.Cells[0].White, ShouldEqual, 2)
				So(body.Cells[0].AverageRating, ShouldEqual, 2300)
				So(body.Cells[0].Games[0].ID, ShouldEqual, "abcd1234")
			})
		})

		Convey("When the fen is missing or invalid", func() {
			So(do(mux, http.MethodGet, "/explorer", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/explorer?fen=garbage", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the position is unknown", func() {
			deps.lookupErr = repository.ErrNotFound
			So(do(mux, http.MethodGet, "/explorer?fen="+strings.ReplaceAll(opening.StartFEN, " ", "+"), "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(newMockDeps())

		Convey("Then /stats serves the provider's map as JSON", func() {
			rec := do(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(rec.Body.String(), ShouldContainSubstring, `"positions":7`)
		})

		Convey("Then /healthz and /metrics expose Prometheus metrics", func() {
			_ = do(mux, http.MethodGet, "/stats", "")
			for _, path := range []string{"/healthz", "/metrics"} {
				rec := do(mux, http.MethodGet, path, "")
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "explorer_index_http_requests_total")
			}
		})
	})
}
