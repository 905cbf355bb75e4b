package storage_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/storage"
)

var _ = Describe("Error", func() {
	It("matches the sentinel of its class", func() {
		rejected := storage.NewError("postgres", "put", storage.ClassRejected, errors.New("bad row"))
		Expect(errors.Is(rejected, storage.ErrRejected)).To(BeTrue())
		Expect(errors.Is(rejected, storage.ErrUnavailable)).To(BeFalse())

		transient := storage.NewError("postgres", "put", storage.ClassTransient, context.DeadlineExceeded)
		Expect(errors.Is(transient, storage.ErrUnavailable)).To(BeTrue())
		Expect(errors.Is(transient, context.DeadlineExceeded)).To(BeTrue())
	})

	It("returns nil for a nil cause", func() {
		Expect(storage.NewError("sqlite", "get", storage.ClassLocal, nil)).To(BeNil())
	})

	Describe("ClassOf", func() {
		It("reads the class through wrapping", func() {
			err := fmt.Errorf("replay: %w", storage.NewError("postgres", "put", storage.ClassTransient, errors.New("x")))
			Expect(storage.ClassOf(err)).To(Equal(storage.ClassTransient))
		})

		It("treats deadlines as transient", func() {
			Expect(storage.ClassOf(fmt.Errorf("query: %w", context.DeadlineExceeded))).To(Equal(storage.ClassTransient))
		})

		It("treats anything else as rejected", func() {
			Expect(storage.ClassOf(errors.New("boom"))).To(Equal(storage.ClassRejected))
		})
	})
})
