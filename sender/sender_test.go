package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kashee337/ac_store/model"
)

func TestMakePendingReport(t *testing.T) {
	Convey("Given pending contests", t, func() {
		now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
		report := MakePendingReport(now, []string{"abc300", "arc150"})

		Convey("Then the report lists each with its url", func() {
			So(report, ShouldEqual, "[2024-03-02]\n2 contests are waiting for rating\n"+
				"abc300: https://atcoder.jp/contests/abc300\n"+
				"arc150: https://atcoder.jp/contests/arc150\n")
		})
	})
}

func TestNotify(t *testing.T) {
	Convey("Given a webhook server", t, func() {
		var got model.Payload
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.Unmarshal([]byte(r.FormValue("payload")), &got)
			w.WriteHeader(status)
		}))
		Reset(srv.Close)

		Convey("When the post succeeds", func() {
			err := Notify(context.Background(), srv.Client(), srv.URL, "hello")

			Convey("Then the payload carries the text", func() {
				So(err, ShouldBeNil)
				So(got.Text, ShouldEqual, "hello")
			})
		})

		Convey("When the server rejects the post", func() {
			status = http.StatusForbidden
			err := Notify(context.Background(), srv.Client(), srv.URL, "hello")

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "403")
			})
		})
	})
}
