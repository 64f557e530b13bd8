package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// WebhookRecorder stands in for the processing backend, keeping the input
// object of every job it was sent.
type WebhookRecorder struct {
	Server *httptest.Server

	mutex    sync.Mutex
	received []map[string]any
	status   int
}

func NewWebhookRecorder() *WebhookRecorder {
	recorder := &WebhookRecorder{status: http.StatusOK}
	recorder.Server = httptest.NewServer(http.HandlerFunc(recorder.handle))
	return recorder
}

func (w *WebhookRecorder) handle(writer http.ResponseWriter, request *http.Request) {
	payload := struct {
		Input map[string]any `json:"input"`
	}{}

	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.received = append(w.received, payload.Input)
	writer.WriteHeader(w.status)
}

func (w *WebhookRecorder) RespondWith(status int) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.status = status
}

func (w *WebhookRecorder) Received() []map[string]any {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return append([]map[string]any(nil), w.received...)
}

func (w *WebhookRecorder) URL() string {
	return w.Server.URL
}

func (w *WebhookRecorder) Close() {
	w.Server.Close()
}
