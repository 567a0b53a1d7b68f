package lichess_test

import (
	"testing"

	"github.com/okian/explorer/internal/domain/lichess"
	"github.com/okian/explorer/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ref(createdAt uint64, id string) lichess.GameRef {
	return lichess.GameRef{CreatedAt: createdAt, ID: model.GameID(id)}
}

func TestMerge(t *testing.T) {
	Convey("Given three groups of the same cell", t, func() {
		a := lichess.Group{
			Stats: model.Stats{White: 1, RatingSum: 2000},
			Games: []lichess.GameRef{ref(100, "g1aaaaaa")},
		}
		b := lichess.Group{
			Stats: model.Stats{Draws: 2, RatingSum: 3900},
			Games: []lichess.GameRef{ref(200, "g2aaaaaa")},
		}
		c := lichess.Group{
			Stats: model.Stats{Black: 1, RatingSum: 2100},
			Games: []lichess.GameRef{ref(300, "g3aaaaaa"), ref(100, "g1aaaaaa")},
		}

		Convey("Then the empty group is an identity on both sides", func() {
			So(lichess.Merge(a, lichess.Group{}), ShouldResemble, a)
			So(lichess.Merge(lichess.Group{}, a), ShouldResemble, a)
			So(lichess.Merge(lichess.Group{}, lichess.Group{}).IsEmpty(), ShouldBeTrue)
		})

		Convey("Then games are concatenated lhs first", func() {
			m := lichess.Merge(a, b)
			So(m.Games, ShouldResemble, []lichess.GameRef{ref(100, "g1aaaaaa"), ref(200, "g2aaaaaa")})
			So(m.Stats, ShouldResemble, model.Stats{White: 1, Draws: 2, RatingSum: 5900})
		})

		Convey("Then merging is associative", func() {
			left := lichess.Merge(lichess.Merge(a, b), c)
			right := lichess.Merge(a, lichess.Merge(b, c))
			So(left, ShouldResemble, right)
		})

		Convey("Then stats do not depend on fold order", func() {
			So(lichess.Merge(c, a).Stats, ShouldResemble, lichess.Merge(a, c).Stats)
		})

		Convey("Then duplicate game ids are kept", func() {
			m := lichess.Merge(a, c)
			So(len(m.Games), ShouldEqual, 3)
			So(m.Games[0], ShouldResemble, m.Games[2])
		})

		Convey("Then inputs are not aliased", func() {
			m := lichess.Merge(a, b)
			m.Games[0].CreatedAt = 999
			So(a.Games[0].CreatedAt, ShouldEqual, 100)
		})

		Convey("When adding in place", func() {
			g := a
			g.Games = append([]lichess.GameRef(nil), a.Games...)
			g.Add(b)
			So(g, ShouldResemble, lichess.Merge(a, b))
		})
	})
}

func TestGroup_Truncate(t *testing.T) {
	Convey("Given a group with four references", t, func() {
		g := lichess.Group{Games: []lichess.GameRef{
			ref(1, "aaaaaaaa"), ref(2, "bbbbbbbb"), ref(3, "cccccccc"), ref(4, "dddddddd"),
		}}

		Convey("When truncating to two", func() {
			g.Truncate(2)
			So(g.Games, ShouldResemble, []lichess.GameRef{ref(3, "cccccccc"), ref(4, "dddddddd")})
		})

		Convey("When the bound is not positive", func() {
			g.Truncate(0)
			So(len(g.Games), ShouldEqual, 4)
		})

		Convey("When the bound exceeds the length", func() {
			g.Truncate(10)
			So(len(g.Games), ShouldEqual, 4)
		})
	})
}
