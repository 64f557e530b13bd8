package testing

import (
	"bytes"
	"encoding/json"
	"github.com/labstack/echo/v4"
	"github.com/onsi/gomega"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
)

type RequestModifier func(r *http.Request)

type RequestModifiers []RequestModifier

func (r *RequestModifiers) Add(mods ...RequestModifier) {
	*r = append(*r, mods...)
}

func WithForwardedFor(header string) RequestModifier {
	return func(request *http.Request) {
		request.Header.Set("X-Forwarded-For", header)
	}
}

func WithRemoteAddr(addr string) RequestModifier {
	return func(request *http.Request) {
		request.RemoteAddr = addr
	}
}

func WithCookie(cookie *http.Cookie) RequestModifier {
	return func(request *http.Request) {
		request.AddCookie(cookie)
	}
}

type FormFile struct {
	FieldName string
	FileName  string
	Content   []byte
}

// RequestFactory builds a JSON request when JSONObj is set, and a multipart
// form when Form or File is set.
type RequestFactory struct {
	Method  string
	Target  string
	JSONObj interface{}
	Form    map[string]string
	File    *FormFile
	Mods    RequestModifiers
}

func (r RequestFactory) body() (io.Reader, string) {
	switch {
	case r.JSONObj != nil:
		buf := &bytes.Buffer{}
		err := json.NewEncoder(buf).Encode(r.JSONObj)
		gomega.ExpectWithOffset(3, err).NotTo(gomega.HaveOccurred())
		return buf, echo.MIMEApplicationJSON

	case r.Form != nil || r.File != nil:
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)

		for field, value := range r.Form {
			gomega.ExpectWithOffset(3, writer.WriteField(field, value)).To(gomega.Succeed())
		}

		if r.File != nil {
			part := ExpectSuccess(writer.CreateFormFile(r.File.FieldName, r.File.FileName))
			ExpectSuccess(part.Write(r.File.Content))
		}

		gomega.ExpectWithOffset(3, writer.Close()).To(gomega.Succeed())
		return buf, writer.FormDataContentType()

	default:
		return nil, ""
	}
}

func (r RequestFactory) make(reqMaker func(string, string, io.Reader) *http.Request, target string) *http.Request {
	body, contentType := r.body()

	request := reqMaker(r.Method, target, body)
	if contentType != "" {
		request.Header.Set(echo.HeaderContentType, contentType)
	}

	for _, mod := range r.Mods {
		mod(request)
	}

	return request
}

func (r RequestFactory) MakeFake() *http.Request {
	return r.make(httptest.NewRequest, r.Target)
}

// Do sends the request for real to the server at baseURL.
func (r RequestFactory) Do(client *http.Client, baseURL string) (*http.Response, error) {
	makeRealRequest := func(method string, target string, body io.Reader) *http.Request {
		return ExpectSuccess(http.NewRequest(method, target, body))
	}

	return client.Do(r.make(makeRealRequest, baseURL+r.Target))
}
