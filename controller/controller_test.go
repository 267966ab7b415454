package controller

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kashee337/ac_store/store"
)

const contestsJSON = `[
  {"id":"abc001","start_epoch_second":1381579200,"duration_second":7200,"title":"AtCoder Beginner Contest 001","rate_change":"-"},
  {"id":"agc001","start_epoch_second":1468670400,"duration_second":6600,"title":"AtCoder Grand Contest 001","rate_change":"All"},
  {"id":"agc002","start_epoch_second":1469275200,"duration_second":6600,"title":"AtCoder Grand Contest 002","rate_change":"All"}
]`

const problemsJSON = `[
  {"id":"agc001_a","contest_id":"agc001","title":"A. BBQ Easy"},
  {"id":"agc001_b","contest_id":"agc001","title":"B. Mysterious Light"},
  {"id":"agc002_a","contest_id":"agc002","title":"A. Range Product"}
]`

const submissionsJSON = `[
  {"id":5000001,"epoch_second":1468670500,"problem_id":"agc001_a","contest_id":"agc001","user_id":"kenkoooo","language":"Rust (1.15.1)","point":200.0,"length":512,"result":"AC","execution_time":3},
  {"id":5000002,"epoch_second":1468670600,"problem_id":"agc001_b","contest_id":"agc001","user_id":"kenkoooo","language":"Rust (1.15.1)","point":0.0,"length":900,"result":"CE","execution_time":null}
]`

const performancesJSON = `[
  {"contest_id":"agc001","user_id":"kenkoooo","inner_performance":1800}
]`

func TestIngest(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		st, err := store.Open(filepath.Join(t.TempDir(), "ingest.db"))
		So(err, ShouldBeNil)
		Reset(func() { _ = st.Close() })

		Convey("When every dump is ingested", func() {
			report, err := Ingest(ctx, st, Sources{
				Contests:     strings.NewReader(contestsJSON),
				Problems:     strings.NewReader(problemsJSON),
				Submissions:  strings.NewReader(submissionsJSON),
				Performances: strings.NewReader(performancesJSON),
			}, nil)

			Convey("Then every table is filled", func() {
				So(err, ShouldBeNil)
				So(report, ShouldResemble, Report{Contests: 3, Problems: 3, Pairs: 3, Submissions: 2, Performances: 1})

				pairs, err := st.GetContestProblemPairs(ctx)
				So(err, ShouldBeNil)
				So(len(pairs), ShouldEqual, 3)

				subs, err := st.GetSubmissions(ctx, "kenkoooo")
				So(err, ShouldBeNil)
				So(len(subs), ShouldEqual, 2)
			})

			Convey("Then only the unrated AGC is pending", func() {
				pending, err := PendingContests(ctx, st)
				So(err, ShouldBeNil)
				So(pending, ShouldResemble, []string{"agc002"})
			})

			Convey("Then ingesting the same dumps again adds nothing but re-upserts submissions", func() {
				report, err := Ingest(ctx, st, Sources{
					Contests:    strings.NewReader(contestsJSON),
					Problems:    strings.NewReader(problemsJSON),
					Submissions: strings.NewReader(submissionsJSON),
				}, nil)
				So(err, ShouldBeNil)
				So(report, ShouldResemble, Report{Submissions: 2})
			})
		})

		Convey("When a dump is not valid JSON", func() {
			_, err := Ingest(ctx, st, Sources{Contests: strings.NewReader("{")}, nil)

			Convey("Then ingest fails before writing", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldStartWith, "decode contests")
				contests, err := st.GetContests(ctx)
				So(err, ShouldBeNil)
				So(contests, ShouldBeEmpty)
			})
		})

		Convey("When a dump holds a malformed row", func() {
			_, err := Ingest(ctx, st, Sources{Problems: strings.NewReader(`[{"id":"","contest_id":"abc001","title":"x"}]`)}, nil)

			Convey("Then the store error is kept", func() {
				So(errors.Is(err, store.ErrMalformedInput), ShouldBeTrue)
			})
		})
	})
}
