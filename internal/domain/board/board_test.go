package board_test

import (
	"testing"

	"github.com/okian/triboard/internal/domain/board"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given wire-format board names", t, func() {
		Convey("Then known names parse to their types", func() {
			for name, want := range map[string]board.Type{
				"score":    board.Score,
				"streak":   board.Streak,
				"accuracy": board.Accuracy,
			} {
				got, err := board.Parse(name)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
				So(got.String(), ShouldEqual, name)
			}
		})

		Convey("Then unknown names are rejected", func() {
			_, err := board.Parse("speed")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown board type")
		})
	})
}

func TestEligible(t *testing.T) {
	Convey("Given a session below the sample-size floor", t, func() {
		s := board.Stats{Score: 99999, MaxStreak: 999, AccuracyPct: 100, Answered: 29}

		Convey("Then no board admits it regardless of other counters", func() {
			for _, bt := range board.All() {
				So(board.Eligible(bt, s), ShouldBeFalse)
			}
		})
	})

	Convey("Given a session with 30 answered questions", t, func() {
		Convey("Then the score board requires score >= 100", func() {
			So(board.Eligible(board.Score, board.Stats{Score: 100, Answered: 30}), ShouldBeTrue)
			So(board.Eligible(board.Score, board.Stats{Score: 99, Answered: 30}), ShouldBeFalse)
		})

		Convey("Then the streak board requires streak >= 10", func() {
			So(board.Eligible(board.Streak, board.Stats{MaxStreak: 10, Answered: 30}), ShouldBeTrue)
			So(board.Eligible(board.Streak, board.Stats{MaxStreak: 9, Answered: 30}), ShouldBeFalse)
		})

		Convey("Then the accuracy board rounds before thresholding", func() {
			// 69.45 rounds to 69.5 and is admitted; 69.44 rounds to 69.4.
			So(board.Eligible(board.Accuracy, board.Stats{AccuracyPct: 69.45, Answered: 30}), ShouldBeTrue)
			So(board.Eligible(board.Accuracy, board.Stats{AccuracyPct: 69.44, Answered: 30}), ShouldBeFalse)
			So(board.Eligible(board.Accuracy, board.Stats{AccuracyPct: 70, Answered: 30}), ShouldBeTrue)
		})
	})
}

func TestValue(t *testing.T) {
	Convey("Given final counters", t, func() {
		s := board.Stats{Score: 150, MaxStreak: 12, AccuracyPct: 80.0, Answered: 40}

		Convey("Then each board ranks on its own field", func() {
			So(board.Value(board.Score, s), ShouldEqual, 150.0)
			So(board.Value(board.Streak, s), ShouldEqual, 12.0)
			So(board.Value(board.Accuracy, s), ShouldEqual, 80.0)
		})
	})
}

func TestRound1(t *testing.T) {
	Convey("Given accuracy values near the admission boundary", t, func() {
		So(board.Round1(69.45), ShouldEqual, 69.5)
		So(board.Round1(69.44), ShouldEqual, 69.4)
		So(board.Round1(100.0), ShouldEqual, 100.0)
		So(board.Round1(0), ShouldEqual, 0.0)
	})
}
