// Package webhook ingests pushed events over HTTP for transports that have
// no push channel of their own (the WRP bridge).
package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	wrp "github.com/xmidt-org/wrp-go/v3"
)

const maxBody = 512 * 1024

// EventPrefix marks a WRP destination that names an event topic.
const EventPrefix = "event:"

// Emitter receives ingested events. *events.Registry satisfies it.
type Emitter interface {
	Emit(topic string, payload any)
}

// IncomingEvent is the JSON envelope accepted on POST /events.
type IncomingEvent struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

var errNoTopic = errors.New("event topic missing")

// Handler returns an http.HandlerFunc that ingests POSTed events. Three body
// forms are accepted: a JSON envelope, a msgpack WRP event whose destination
// is "event:<topic>", or any body with the topic in the X-Event-Topic header.
func Handler(em Emitter, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				log.Debug().Int64("limit", tooLarge.Limit).Msg("rejecting oversized event")
				http.Error(w, "event body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		topic, payload, err := decode(r, body)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("rejecting event")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		em.Emit(topic, payload)
		log.Debug().
			Str("topic", topic).
			Int("payload_bytes", len(payload)).
			Str("payload_preview", previewBytes(payload, 256)).
			Msg("event ingested")
		w.WriteHeader(http.StatusAccepted)
	}
}

func decode(r *http.Request, body []byte) (string, json.RawMessage, error) {
	if topic := strings.TrimSpace(r.Header.Get("X-Event-Topic")); topic != "" {
		return topic, asJSON(body), nil
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/msgpack", "application/wrp":
		var msg wrp.Message
		if err := wrp.NewDecoderBytes(body, wrp.Msgpack).Decode(&msg); err != nil {
			return "", nil, err
		}
		topic := strings.TrimPrefix(msg.Destination, EventPrefix)
		if topic == "" || topic == msg.Destination {
			return "", nil, errNoTopic
		}
		return topic, asJSON(msg.Payload), nil
	}
	var evt IncomingEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return "", nil, err
	}
	if evt.Topic == "" {
		return "", nil, errNoTopic
	}
	return evt.Topic, evt.Payload, nil
}

// asJSON keeps valid JSON as is and wraps anything else as a JSON string, so
// log lines pushed as plain text still decode.
func asJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	s, _ := json.Marshal(string(b))
	return s
}

// previewBytes returns a printable (possibly truncated) string representation
// of raw bytes. Truncation never splits a rune.
func previewBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "…"
}
