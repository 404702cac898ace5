package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the default initialisation", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then the global logger should be available", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
		})
	})

	Convey("Given an unknown format", t, func() {
		So(Init(WithFormat("xml")), ShouldNotBeNil)
	})

	Convey("Given an unknown level", t, func() {
		So(Init(WithLevel("loud")), ShouldNotBeNil)
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFormat(FormatJSON), WithLevel("info")), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().With(String("run", "r1")).Info(ctx, "run finished", Int("days", 30), Float64("attack", 0.12))

			Convey("Then the record should carry every field and the caller", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "run finished")
				So(rec["run"], ShouldEqual, "r1")
				So(rec["days"], ShouldEqual, 30.0)
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the level", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			Convey("Then raising verbosity should let it through", func() {
				So(SetLevelString("DEBUG"), ShouldBeNil)
				Get().Debug(ctx, "shown")
				So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			})
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then every level should be silently accepted", func() {
			So(func() {
				ctx := context.Background()
				l.Debug(ctx, "d")
				l.Info(ctx, "i", Bool("ok", true))
				l.Warn(ctx, "w")
				l.Error(ctx, "e", Error(nil))
				l.Named("x").With(Int("k", 1)).Info(ctx, "i")
			}, ShouldNotPanic)
		})
	})
}
