package synccmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	synccmder "github.com/papercomputeco/strata/cmd/strata/sync"
)

var _ = Describe("Sync command", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := synccmder.NewSyncCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append([]string{"--sqlite", filepath.Join(tmpDir, "strata.sqlite")}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "strata-sync-test-*")
		Expect(err).NotTo(HaveOccurred())
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".strata"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("lists an empty queue", func() {
		Expect(execute("--list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Sync queue is empty"))
	})

	It("requires a remote store to replay", func() {
		Expect(execute()).To(MatchError(synccmder.ErrNoRemote))
	})
})
