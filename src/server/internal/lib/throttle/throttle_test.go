package throttle_test

import (
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/throttle"
	"github.com/veedubyou/stem-splitter-be/src/shared/testing"
	"net/http"
	"net/http/httptest"
)

var _ = Describe("Throttle", func() {
	var limiter *throttle.Limiter

	BeforeEach(func() {
		limiter = throttle.NewLimiter(0.001, 2)
	})

	AfterEach(func() {
		limiter.Stop()
	})

	attempt := func(forwardedFor string) *httptest.ResponseRecorder {
		request := testing.RequestFactory{
			Method: "POST",
			Target: "/use_key",
			Mods:   testing.RequestModifiers{testing.WithForwardedFor(forwardedFor)},
		}.MakeFake()

		response := httptest.NewRecorder()
		c := testing.PrepareEchoContext(request, response)

		handler := limiter.Middleware()(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		Expect(handler(c)).To(Succeed())

		return response
	}

	It("lets the burst through and then answers 429", func() {
		Expect(attempt("198.51.100.4").Code).To(Equal(http.StatusOK))
		Expect(attempt("198.51.100.4").Code).To(Equal(http.StatusOK))

		response := attempt("198.51.100.4")
		Expect(response.Code).To(Equal(http.StatusTooManyRequests))
		Expect(testing.DecodeJSONError(response.Body).Code).To(Equal(string(api.TooManyRequestsCode)))
	})

	It("limits each address on its own", func() {
		attempt("198.51.100.4")
		attempt("198.51.100.4")

		Expect(attempt("198.51.100.4").Code).To(Equal(http.StatusTooManyRequests))
		Expect(attempt("198.51.100.5").Code).To(Equal(http.StatusOK))
	})

	It("can be stopped twice", func() {
		limiter.Stop()
	})
})
