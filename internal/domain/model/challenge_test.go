package model_test

import (
	"testing"

	"github.com/okian/pong/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChallengeClone(t *testing.T) {
	Convey("Given an issued challenge with responses", t, func() {
		c := &model.Challenge{
			ID:        "c-1",
			Team:      "T1",
			Initiator: "alice",
			IssuedAt:  1000,
			Responses: map[string]int64{"bob": 1200, "carol": 1500},
			Status:    model.StatusIssued,
			Version:   3,
		}

		Convey("When cloning it", func() {
			cp := c.Clone()

			Convey("Then the copy matches the original", func() {
				So(cp.ID, ShouldEqual, c.ID)
				So(cp.Version, ShouldEqual, c.Version)
				So(cp.Responses, ShouldResemble, c.Responses)
			})

			Convey("And mutating the copy leaves the original alone", func() {
				cp.Responses["dave"] = 1800
				cp.Version = 9
				So(len(c.Responses), ShouldEqual, 2)
				So(c.Version, ShouldEqual, 3)
			})
		})

		Convey("When cloning a nil challenge", func() {
			var nilC *model.Challenge
			So(nilC.Clone(), ShouldBeNil)
		})
	})
}

func TestChallengeClosed(t *testing.T) {
	Convey("Given challenges in each state", t, func() {
		So((&model.Challenge{Status: model.StatusPending}).Closed(), ShouldBeFalse)
		So((&model.Challenge{Status: model.StatusIssued}).Closed(), ShouldBeFalse)
		So((&model.Challenge{Status: model.StatusClosed}).Closed(), ShouldBeTrue)
	})
}
