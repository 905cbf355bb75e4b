package logger_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a console logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", zap.String("key", "value"))

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &buf)
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", zap.Int("count", 42))

			var parsed map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
			Expect(parsed["msg"]).To(Equal("structured"))
			Expect(parsed["count"]).To(BeNumerically("==", 42))
			Expect(parsed).To(HaveKey("time"))
		})

		It("supports multiple writers", func() {
			var a, b bytes.Buffer
			l := logger.NewLoggerWithWriters(false, &a, &b)
			l.Info("fan out")

			Expect(a.String()).To(ContainSubstring("fan out"))
			Expect(b.String()).To(ContainSubstring("fan out"))
		})
	})

	Describe("Tee", func() {
		It("dispatches to every logger at its own level", func() {
			var console, file bytes.Buffer
			l := logger.Tee(
				logger.New(logger.WithWriter(&console)),
				logger.New(logger.WithWriter(&file), logger.WithJSON(true), logger.WithDebug(true)),
			)

			l.Debug("debug only in file")
			l.Info("everywhere")

			Expect(console.String()).NotTo(ContainSubstring("debug only in file"))
			Expect(console.String()).To(ContainSubstring("everywhere"))
			Expect(file.String()).To(ContainSubstring("debug only in file"))
			Expect(file.String()).To(ContainSubstring("everywhere"))
		})

		It("binds fields on child loggers", func() {
			var buf bytes.Buffer
			l := logger.Tee(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))
			l.With(zap.String("component", "sync")).Info("drained")

			var parsed map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
			Expect(parsed["component"]).To(Equal("sync"))
		})
	})
})
