package application_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter-be/src/server/application"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/gateway"
	"github.com/veedubyou/stem-splitter-be/src/shared/config"
	"github.com/veedubyou/stem-splitter-be/src/shared/testing"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var _ = Describe("Application", func() {
	var (
		backend *testing.WebhookRecorder
		app     *application.App
		server  *httptest.Server
		client  *http.Client
	)

	BeforeEach(func() {
		dir, err := os.MkdirTemp("", "application")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)

		keyFile := filepath.Join(dir, "keys.yaml")
		Expect(os.WriteFile(keyFile, []byte("keys:\n  - open-sesame\n"), 0o600)).To(Succeed())

		backend = testing.NewWebhookRecorder()

		app = application.NewApp(application.Config{
			StorageConfig:      config.LocalStorage{StorageHost: "http://localhost:5000", BucketName: "test-bucket"},
			TriggerConfig:      config.WebhookTrigger{URL: backend.URL()},
			DispatchConfig:     config.Dispatch{Timeout: 5 * time.Second, MaxConcurrent: 2},
			LedgerConfig:       config.MemoryLedger{},
			KeySource:          config.FileKeySource{Path: keyFile},
			StemVariant:        jobentity.TwoStems,
			FreeUseLimit:       2,
			SessionSecret:      "test-secret",
			FeedbackLogPath:    filepath.Join(dir, "feedback.txt"),
			CORSAllowedOrigins: []string{"*"},
		})

		server = httptest.NewServer(app.Handler())
		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	AfterEach(func() {
		server.Close()
		Expect(app.Stop()).To(Succeed())
		backend.Close()
	})

	do := func(factory testing.RequestFactory) *http.Response {
		return testing.ExpectSuccess(factory.Do(client, server.URL))
	}

	upload := func() *http.Response {
		return do(testing.RequestFactory{
			Method: "POST",
			Target: "/",
			File:   &testing.FormFile{FieldName: "file", FileName: "song.mp3", Content: []byte("audio")},
		})
	}

	It("answers the health check", func() {
		response := do(testing.RequestFactory{Method: "GET", Target: "/health-check"})
		Expect(response.StatusCode).To(Equal(http.StatusOK))
	})

	It("serves the upload page", func() {
		response := do(testing.RequestFactory{Method: "GET", Target: "/"})
		Expect(response.StatusCode).To(Equal(http.StatusOK))

		body := string(testing.ExpectSuccess(io.ReadAll(response.Body)))
		Expect(body).To(ContainSubstring("test-bucket"))
	})

	It("runs the free uses, the block and the unlock end to end", func() {
		first := upload()
		Expect(first.StatusCode).To(Equal(http.StatusOK))
		submitted := testing.DecodeJSON[jobgateway.SubmitResponse](first.Body)
		Expect(submitted.Stems).To(Equal([]string{"vocals", "accompaniment"}))

		Eventually(backend.Received).Should(HaveLen(1))
		Expect(backend.Received()[0]["filename"]).To(Equal(submitted.JobID))

		Expect(upload().StatusCode).To(Equal(http.StatusOK))

		blocked := upload()
		Expect(testing.DecodeJSON[map[string]any](blocked.Body)).To(HaveKeyWithValue("blocked", true))

		unlock := do(testing.RequestFactory{
			Method:  "POST",
			Target:  "/use_key",
			JSONObj: map[string]string{"key": "open-sesame"},
		})
		Expect(unlock.StatusCode).To(Equal(http.StatusOK))

		again := upload()
		Expect(testing.DecodeJSON[map[string]any](again.Body)).NotTo(HaveKey("blocked"))

		Eventually(backend.Received).Should(HaveLen(3))
	})

	It("reports a fresh job as pending", func() {
		submitted := testing.DecodeJSON[jobgateway.SubmitResponse](upload().Body)

		response := do(testing.RequestFactory{Method: "GET", Target: "/status?file=" + submitted.JobID})
		Expect(response.StatusCode).To(Equal(http.StatusAccepted))
	})

	It("throttles repeated key guesses", func() {
		codes := []int{}
		for i := 0; i < application.DefaultKeyAttemptBurst+1; i++ {
			response := do(testing.RequestFactory{
				Method:  "POST",
				Target:  "/use_key",
				JSONObj: map[string]string{"key": "guess"},
			})
			codes = append(codes, response.StatusCode)
		}

		Expect(codes[0]).To(Equal(http.StatusForbidden))
		Expect(codes[len(codes)-1]).To(Equal(http.StatusTooManyRequests))
	})

	It("exposes metrics", func() {
		upload()

		response := do(testing.RequestFactory{Method: "GET", Target: "/metrics"})
		body := string(testing.ExpectSuccess(io.ReadAll(response.Body)))
		Expect(strings.Contains(body, `stem_splitter_submissions_total{outcome="accepted"} 1`)).To(BeTrue())
	})
})
