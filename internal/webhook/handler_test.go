package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wrp "github.com/xmidt-org/wrp-go/v3"
)

type event struct {
	topic   string
	payload string
}

type recorder struct {
	mu  sync.Mutex
	got []event
}

func (r *recorder) Emit(topic string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, _ := payload.(json.RawMessage)
	r.got = append(r.got, event{topic, string(raw)})
}

func post(t *testing.T, h http.Handler, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIngestForms(t *testing.T) {
	var wrpBody bytes.Buffer
	require.NoError(t, wrp.NewEncoder(&wrpBody, wrp.Msgpack).Encode(&wrp.Message{
		Type:        wrp.SimpleEventMessageType,
		Source:      "core",
		Destination: "event:stats:traffic",
		Payload:     []byte(`{"up":1,"down":2}`),
	}))

	cases := []struct {
		name   string
		body   []byte
		header map[string]string
		want   event
	}{
		{"json envelope", []byte(`{"topic":"core:status","payload":{"running":true}}`), nil, event{"core:status", `{"running":true}`}},
		{"header topic json", []byte(`["a","b"]`), map[string]string{"X-Event-Topic": "core:log"}, event{"core:log", `["a","b"]`}},
		{"header topic text", []byte(`plain line`), map[string]string{"X-Event-Topic": "core:log"}, event{"core:log", `"plain line"`}},
		{"wrp event", wrpBody.Bytes(), map[string]string{"Content-Type": "application/msgpack"}, event{"stats:traffic", `{"up":1,"down":2}`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			rr := post(t, NewRouter(rec, Options{Logger: zerolog.Nop()}), tc.body, tc.header)
			require.Equal(t, http.StatusAccepted, rr.Code)
			require.Len(t, rec.got, 1)
			assert.Equal(t, tc.want, rec.got[0])
		})
	}
}

func TestIngestRejects(t *testing.T) {
	rec := &recorder{}
	h := NewRouter(rec, Options{})
	assert.Equal(t, http.StatusBadRequest, post(t, h, []byte(`{"payload":1}`), nil).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, []byte(`not json`), nil).Code)
	assert.Empty(t, rec.got)
}

func TestIngestToken(t *testing.T) {
	rec := &recorder{}
	h := NewRouter(rec, Options{Token: "s3cret"})
	body := []byte(`{"topic":"notification","payload":{}}`)
	assert.Equal(t, http.StatusUnauthorized, post(t, h, body, nil).Code)
	assert.Equal(t, http.StatusAccepted, post(t, h, body, map[string]string{"Authorization": "Bearer s3cret"}).Code)
	assert.Len(t, rec.got, 1)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	h := NewRouter(&recorder{}, Options{Metrics: metrics})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "# metrics"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestIngestRejectsOversizedBody(t *testing.T) {
	rec := &recorder{}
	h := NewRouter(rec, Options{})
	body := append([]byte(`["`), bytes.Repeat([]byte("x"), maxBody)...)
	body = append(body, `"]`...)

	rr := post(t, h, body, map[string]string{"X-Event-Topic": "core:log"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, rec.got)

	// exactly at the limit is still accepted
	exact := append([]byte(`"`), bytes.Repeat([]byte("y"), maxBody-2)...)
	exact = append(exact, '"')
	rr = post(t, h, exact, map[string]string{"X-Event-Topic": "core:log"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, rec.got, 1)
	assert.Len(t, rec.got[0].payload, maxBody)
}

func TestPreviewBytesKeepsRunesWhole(t *testing.T) {
	b := []byte("aé€") // 1 + 2 + 3 bytes
	assert.Equal(t, "aé€", previewBytes(b, 6))
	assert.Equal(t, "aé…", previewBytes(b, 4))
	assert.Equal(t, "aé…", previewBytes(b, 5))
	assert.Equal(t, "a…", previewBytes(b, 2))
	for n := 0; n < len(b); n++ {
		assert.True(t, utf8.ValidString(strings.TrimSuffix(previewBytes(b, n), "…")), n)
	}
}
