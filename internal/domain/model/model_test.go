package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/explorer/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSpeed(t *testing.T) {
	Convey("Given the closed speed set", t, func() {
		Convey("Then it is ordered fastest to slowest", func() {
			So(model.Speeds(), ShouldResemble, []model.Speed{
				model.UltraBullet, model.Bullet, model.Blitz,
				model.Rapid, model.Classical, model.Correspondence,
			})
		})

		Convey("When parsing lichess names", func() {
			for _, s := range model.Speeds() {
				parsed, err := model.ParseSpeed(s.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, s)
			}

			_, err := model.ParseSpeed("hyperBullet")
			So(err, ShouldNotBeNil)
		})

		Convey("When a value is outside the set", func() {
			for _, s := range []model.Speed{model.SpeedUnknown, model.Speed(7)} {
				So(s.Valid(), ShouldBeFalse)
				_, err := s.MarshalText()
				So(err, ShouldNotBeNil)
			}
		})

		Convey("When a game is decoded without speed or status", func() {
			var g model.Game
			So(json.Unmarshal([]byte(`{"id":"abcd1234","rated":true}`), &g), ShouldBeNil)

			Convey("Then both stay unknown", func() {
				So(g.Speed, ShouldEqual, model.SpeedUnknown)
				So(g.Speed.Valid(), ShouldBeFalse)
				So(g.Status.Known(), ShouldBeFalse)
			})
		})

		Convey("When parsing an empty name", func() {
			s, err := model.ParseSpeed("")
			So(err, ShouldNotBeNil)
			So(s, ShouldEqual, model.SpeedUnknown)
		})
	})
}

func TestSelectRatingGroup(t *testing.T) {
	Convey("Given average ratings", t, func() {
		cases := []struct {
			avg   int
			group model.RatingGroup
			ok    bool
		}{
			{1599, 0, false},
			{1600, model.Group1600, true},
			{1799, model.Group1600, true},
			{1800, model.Group1800, true},
			{2199, model.Group2000, true},
			{2200, model.Group2200, true},
			{2499, model.Group2200, true},
			{2500, model.Group2500, true},
			{2800, model.Group2800, true},
			{3199, model.Group2800, true},
			{3200, model.Group3200, true},
			{3900, model.Group3200, true},
		}

		for _, c := range cases {
			group, ok := model.SelectRatingGroup(c.avg)
			So(ok, ShouldEqual, c.ok)
			if c.ok {
				So(group, ShouldEqual, c.group)
				So(group.LowerBound(), ShouldBeLessThanOrEqualTo, c.avg)
			}
		}
	})

	Convey("Given rating group text", t, func() {
		var g model.RatingGroup
		So(g.UnmarshalText([]byte("2500")), ShouldBeNil)
		So(g, ShouldEqual, model.Group2500)
		So(g.UnmarshalText([]byte("2100")), ShouldNotBeNil)
	})
}

func TestStats(t *testing.T) {
	Convey("Given two stats", t, func() {
		a := model.Stats{White: 3, Draws: 1, Black: 2, RatingSum: 12000}
		b := model.Stats{White: 1, Black: 1, RatingSum: 4000}

		Convey("When adding them", func() {
			sum := a
			sum.Add(b)

			Convey("Then every counter is added pointwise", func() {
				So(sum, ShouldResemble, model.Stats{White: 4, Draws: 1, Black: 3, RatingSum: 16000})
				So(sum.Total(), ShouldEqual, 8)
				So(sum.AverageRating(), ShouldEqual, 2000)
			})
		})

		Convey("Then the zero value is the identity", func() {
			sum := a
			sum.Add(model.Stats{})
			So(sum, ShouldResemble, a)
			So(model.Stats{}.AverageRating(), ShouldEqual, 0)
		})
	})

	Convey("Given a single game outcome", t, func() {
		So(model.StatsFor(model.White, 2000), ShouldResemble, model.Stats{White: 1, RatingSum: 2000})
		So(model.StatsFor(model.Black, 1900), ShouldResemble, model.Stats{Black: 1, RatingSum: 1900})
		So(model.StatsFor(model.NoColor, 1700), ShouldResemble, model.Stats{Draws: 1, RatingSum: 1700})
	})
}

func TestGameDecoding(t *testing.T) {
	Convey("Given a lichess NDJSON game line", t, func() {
		line := `{"id":"q7ZvsdUF","rated":true,"variant":"standard","speed":"blitz","perf":"blitz",` +
			`"createdAt":1514505150384,"lastMoveAt":1514505592843,"status":"resign",` +
			`"players":{"white":{"user":{"name":"Lance5500","id":"lance5500"},"rating":2389},` +
			`"black":{"user":{"name":"TryingHard87","id":"tryinghard87"},"rating":2498}},` +
			`"winner":"black","moves":"d4 d5 c4 c6 Nc3 e6"}`

		var g model.Game
		err := json.Unmarshal([]byte(line), &g)

		Convey("Then every field is decoded", func() {
			So(err, ShouldBeNil)
			So(g.ID, ShouldEqual, model.GameID("q7ZvsdUF"))
			So(g.Rated, ShouldBeTrue)
			So(g.Speed, ShouldEqual, model.Blitz)
			So(g.Status, ShouldEqual, model.StatusResign)
			So(g.Variant, ShouldEqual, model.VariantStandard)
			So(g.Winner, ShouldEqual, model.Black)
			So(g.CreatedAt, ShouldEqual, uint64(1514505150384))
			So(g.SANs(), ShouldResemble, []string{"d4", "d5", "c4", "c6", "Nc3", "e6"})
			So(g.AverageRating(), ShouldEqual, 2443)
		})
	})

	Convey("Given malformed fields", t, func() {
		var g model.Game
		So(json.Unmarshal([]byte(`{"id":"short"}`), &g), ShouldNotBeNil)
		So(json.Unmarshal([]byte(`{"id":"abcdefgh","status":"paused"}`), &g), ShouldNotBeNil)
		So(json.Unmarshal([]byte(`{"id":"abcdefgh","speed":"warp"}`), &g), ShouldNotBeNil)
	})

	Convey("Given statuses", t, func() {
		So(model.StatusStarted.IsOngoing(), ShouldBeTrue)
		So(model.StatusCreated.IsOngoing(), ShouldBeTrue)
		So(model.StatusMate.IsOngoing(), ShouldBeFalse)
		So(model.StatusAborted.IsUnindexable(), ShouldBeTrue)
		So(model.StatusNoStart.IsUnindexable(), ShouldBeTrue)
		So(model.StatusUnknownFinish.IsUnindexable(), ShouldBeTrue)
		So(model.StatusOutOfTime.IsUnindexable(), ShouldBeFalse)
	})
}
