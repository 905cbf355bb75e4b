package statuscmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statuscmder "github.com/papercomputeco/strata/cmd/strata/status"
	"github.com/papercomputeco/strata/pkg/registry"
)

var _ = Describe("Status command", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
		server  *httptest.Server
		reply   func(w http.ResponseWriter)
	)

	execute := func(args ...string) error {
		cmd := statuscmder.NewStatusCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append([]string{"--api-target", server.URL}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "strata-status-test-*")
		Expect(err).NotTo(HaveOccurred())
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".strata"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
		reply = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": registry.Status{
					Online:    false,
					HasRemote: true,
					Breaker:   "open",
					Queued:    3,
					Stored:    7,
				},
			})
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/sync" {
				http.NotFound(w, r)
				return
			}
			reply(w)
		}))
	})

	AfterEach(func() {
		server.Close()
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("renders the server status", func() {
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("offline"))
		Expect(out.String()).To(ContainSubstring("Queued"))
		Expect(out.String()).To(ContainSubstring("3"))
	})

	It("prints JSON on request", func() {
		Expect(execute("--json")).To(Succeed())

		var st registry.Status
		Expect(json.Unmarshal(out.Bytes(), &st)).To(Succeed())
		Expect(st.Queued).To(Equal(3))
		Expect(st.Breaker).To(Equal("open"))
	})

	It("surfaces API errors", func() {
		reply = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"boom","code":"INTERNAL"}`))
		}
		Expect(execute()).To(MatchError(ContainSubstring("boom")))
	})

	It("fails when the server is unreachable", func() {
		server.Close()
		Expect(execute()).To(MatchError(ContainSubstring("contacting strata server")))
	})
})
