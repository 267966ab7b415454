package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jinzhu/gorm"
	"github.com/mattn/go-sqlite3"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassify(t *testing.T) {
	Convey("Given driver failures", t, func() {
		cases := []struct {
			err  error
			want Kind
		}{
			{sqlite3.Error{Code: sqlite3.ErrBusy}, KindConnectivity},
			{sqlite3.Error{Code: sqlite3.ErrLocked}, KindConnectivity},
			{sqlite3.Error{Code: sqlite3.ErrCantOpen}, KindConnectivity},
			{sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, KindConstraint},
			{sqlite3.Error{Code: sqlite3.ErrMismatch}, KindMalformedInput},
			{sqlite3.Error{Code: sqlite3.ErrTooBig}, KindMalformedInput},
			{sqlite3.Error{Code: sqlite3.ErrCorrupt}, KindInternal},
			{fmt.Errorf("exec: %w", driver.ErrBadConn), KindConnectivity},
			{context.DeadlineExceeded, KindConnectivity},
			{gorm.Errors{errors.New("boom"), sqlite3.Error{Code: sqlite3.ErrConstraint}}, KindConstraint},
			{errors.New("boom"), KindInternal},
		}

		Convey("Then each maps to its kind", func() {
			for _, c := range cases {
				So(classify(c.err), ShouldEqual, c.want)
			}
		})
	})

	Convey("Given a wrapped connectivity failure", t, func() {
		err := wrap(OpInsertSubmissions, sqlite3.Error{Code: sqlite3.ErrBusy})

		Convey("Then it matches its sentinel only and is retryable", func() {
			So(errors.Is(err, ErrConnectivity), ShouldBeTrue)
			So(errors.Is(err, ErrConstraint), ShouldBeFalse)
			So(IsRetryable(err), ShouldBeTrue)
			So(IsRetryable(fmt.Errorf("ingest: %w", err)), ShouldBeTrue)

			var sqliteErr sqlite3.Error
			So(errors.As(err, &sqliteErr), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "store: insert_submissions: connectivity: ")
		})
	})

	Convey("Given a store error that is wrapped again", t, func() {
		inner := malformed(OpInsertContests, "contest %d: id is required", 3)
		err := wrap(OpInsertContests, inner)

		Convey("Then its kind is kept", func() {
			So(err, ShouldEqual, inner)
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
			So(IsRetryable(err), ShouldBeFalse)
		})
	})

	Convey("Given no error", t, func() {
		So(wrap(OpGetContests, nil), ShouldBeNil)
	})
}
