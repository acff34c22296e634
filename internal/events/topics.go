// Package events is the process-wide push event router: topic to handler
// bindings with per-observer lifetimes.
package events

import (
	"encoding/json"
	"fmt"
)

// Topics pushed by the core process.
const (
	TopicCoreStatus     = "core:status"
	TopicTraffic        = "stats:traffic"
	TopicCoreLog        = "core:log"
	TopicUpdateProgress = "update:progress"
	TopicNotification   = "notification"
	TopicSpeedTest      = "speedtest:result"
)

// Topics lists every topic the shell listens to.
func Topics() []string {
	return []string{
		TopicCoreStatus,
		TopicTraffic,
		TopicCoreLog,
		TopicUpdateProgress,
		TopicNotification,
		TopicSpeedTest,
	}
}

// Decode converts a payload into T. Values that already have type T pass
// through; raw JSON is unmarshalled; anything else is re-encoded first.
func Decode[T any](payload any) (T, error) {
	var out T
	switch v := payload.(type) {
	case T:
		return v, nil
	case json.RawMessage:
		err := json.Unmarshal(v, &out)
		return out, err
	case []byte:
		err := json.Unmarshal(v, &out)
		return out, err
	case nil:
		return out, fmt.Errorf("decode %T: empty payload", out)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// Typed adapts fn to a Handler. Payloads that do not decode are passed to
// onErr when it is set and otherwise dropped.
func Typed[T any](fn func(T), onErr func(error)) Handler {
	return func(payload any) {
		v, err := Decode[T](payload)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		fn(v)
	}
}
