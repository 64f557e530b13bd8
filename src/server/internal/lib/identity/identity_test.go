package identity_test

import (
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"github.com/veedubyou/stem-splitter-be/src/shared/testing"
	"net/http"
	"net/http/httptest"
	"strings"
)

var _ = Describe("Identity", func() {
	request := func(mods ...testing.RequestModifier) *http.Request {
		return testing.RequestFactory{
			Method: "GET",
			Target: "/",
			Mods:   mods,
		}.MakeFake()
	}

	Describe("ClientAddress", func() {
		It("prefers the first forwarded address", func() {
			r := request(
				testing.WithForwardedFor(" 198.51.100.4 , 10.0.0.1"),
				testing.WithRemoteAddr("10.0.0.1:4000"))

			Expect(identity.ClientAddress(r)).To(Equal("198.51.100.4"))
		})

		It("falls back to the peer host", func() {
			r := request(testing.WithRemoteAddr("192.0.2.9:51234"))

			Expect(identity.ClientAddress(r)).To(Equal("192.0.2.9"))
		})

		It("ignores an empty forwarded header", func() {
			r := request(testing.WithForwardedFor(" , 10.0.0.1"), testing.WithRemoteAddr("192.0.2.9:1"))

			Expect(identity.ClientAddress(r)).To(Equal("192.0.2.9"))
		})
	})

	It("keys on the address and the session", func() {
		Expect(identity.Identity{Address: "a"}.Keys()).To(Equal([]string{"addr:a"}))
		Expect(identity.Identity{Address: "a", SessionToken: "t"}.Keys()).To(Equal([]string{"addr:a", "session:t"}))
	})

	Describe("Resolver", func() {
		resolve := func(resolver identity.Resolver, r *http.Request) (identity.Identity, *httptest.ResponseRecorder) {
			response := httptest.NewRecorder()
			c := testing.PrepareEchoContext(r, response)

			var resolved identity.Identity
			handler := resolver.Middleware()(func(c echo.Context) error {
				resolved = identity.FromContext(c)
				return nil
			})

			Expect(handler(c)).To(Succeed())
			return resolved, response
		}

		sessionCookie := func(response *httptest.ResponseRecorder) *http.Cookie {
			for _, cookie := range response.Result().Cookies() {
				if cookie.Name == identity.SessionCookieName {
					return cookie
				}
			}
			return nil
		}

		It("is address only without a secret", func() {
			id, response := resolve(identity.NewResolver(""), request(testing.WithRemoteAddr("192.0.2.9:1")))

			Expect(id).To(Equal(identity.Identity{Address: "192.0.2.9"}))
			Expect(sessionCookie(response)).To(BeNil())
		})

		It("issues a signed session on first contact", func() {
			id, response := resolve(identity.NewResolver("secret"), request())

			Expect(id.SessionToken).NotTo(BeEmpty())
			cookie := sessionCookie(response)
			Expect(cookie).NotTo(BeNil())
			Expect(strings.HasPrefix(cookie.Value, id.SessionToken+".")).To(BeTrue())
		})

		It("keeps the session of a returning client", func() {
			resolver := identity.NewResolver("secret")
			first, response := resolve(resolver, request())

			second, _ := resolve(resolver, request(testing.WithCookie(sessionCookie(response))))
			Expect(second.SessionToken).To(Equal(first.SessionToken))
		})

		It("replaces a forged session", func() {
			resolver := identity.NewResolver("secret")
			forged := &http.Cookie{Name: identity.SessionCookieName, Value: "chosen-token.deadbeef"}

			id, response := resolve(resolver, request(testing.WithCookie(forged)))
			Expect(id.SessionToken).NotTo(Equal("chosen-token"))
			Expect(sessionCookie(response)).NotTo(BeNil())
		})

		It("does not trust sessions signed with another secret", func() {
			_, response := resolve(identity.NewResolver("other"), request())

			id, _ := resolve(identity.NewResolver("secret"), request(testing.WithCookie(sessionCookie(response))))
			Expect(id.SessionToken).NotTo(BeEmpty())
			Expect(sessionCookie(response).Value).NotTo(HavePrefix(id.SessionToken))
		})
	})
})
