package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/strata/cmd/strata/init"
	"github.com/papercomputeco/strata/pkg/config"
)

var _ = Describe("Init command", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	loadConfig := func() *config.Config {
		data, err := os.ReadFile(filepath.Join(tmpDir, ".strata", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "strata-init-test-*")
		Expect(err).NotTo(HaveOccurred())
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates the local .strata directory", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".strata"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Initialized"))
	})

	It("is idempotent", func() {
		Expect(execute()).To(Succeed())
		out.Reset()
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	It("writes a preset config", func() {
		Expect(execute("--preset", "postgres-kafka")).To(Succeed())

		cfg := loadConfig()
		Expect(cfg.Remote.DSN).NotTo(BeEmpty())
		Expect(cfg.Events.Provider).To(Equal(config.EventsKafka))
	})

	It("keeps an existing config unless forced", func() {
		Expect(execute("--preset", "postgres")).To(Succeed())
		Expect(execute("--preset", "local")).To(MatchError(ContainSubstring("already exists")))
		Expect(loadConfig().Remote.DSN).NotTo(BeEmpty())

		Expect(execute("--preset", "local", "--force")).To(Succeed())
		cfg := loadConfig()
		Expect(cfg.Remote.DSN).To(BeEmpty())
		Expect(cfg.Sync.Queue).To(Equal(config.QueueMemory))
	})

	It("rejects an unknown preset before touching the filesystem", func() {
		Expect(execute("--preset", "mainframe")).To(MatchError(ContainSubstring("unknown preset")))
		_, err := os.Stat(filepath.Join(tmpDir, ".strata"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
