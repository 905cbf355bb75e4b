package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/cliui"
)

var _ = Describe("cliui", func() {
	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("marks success and failure", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("x"))).To(Equal(cliui.FailMark))
	})

	It("reports the step result and returns the step error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		Expect(cliui.Step(&buf, "draining queue", func() error { return boom })).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("draining queue"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("lists key/value pairs", func() {
		var buf bytes.Buffer
		cliui.KeyValues(&buf, []cliui.Pair{
			{Key: "remote", Value: "postgres"},
			{Key: "queued", Value: "3"},
		})

		Expect(buf.String()).To(ContainSubstring("remote"))
		Expect(buf.String()).To(ContainSubstring("postgres"))
		Expect(buf.String()).To(ContainSubstring("3"))
	})

	It("renders connectivity", func() {
		Expect(cliui.Connectivity(true)).To(ContainSubstring("online"))
		Expect(cliui.Connectivity(false)).To(ContainSubstring("offline"))
	})
})
