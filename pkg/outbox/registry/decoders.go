package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/storetrail/storetrail-backend/pkg/enums"
)

// ErrNoDecoder is returned when nothing is registered for an event type and version.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns a raw event body into its typed payload.
type Decoder func(raw json.RawMessage) (any, error)

type schemaVersion struct {
	event   enums.OutboxEventType
	version int
}

// Decoders holds the payload schemas a consumer understands, keyed by event type and version.
type Decoders struct {
	mu      sync.RWMutex
	schemas map[schemaVersion]Decoder
}

func NewDecoders() *Decoders {
	return &Decoders{schemas: map[schemaVersion]Decoder{}}
}

// Register replaces any decoder already bound to the event type and version.
func (d *Decoders) Register(event enums.OutboxEventType, version int, decode Decoder) {
	d.mu.Lock()
	d.schemas[schemaVersion{event: event, version: version}] = decode
	d.mu.Unlock()
}

func (d *Decoders) Decode(event enums.OutboxEventType, version int, raw json.RawMessage) (any, error) {
	d.mu.RLock()
	decode, ok := d.schemas[schemaVersion{event: event, version: version}]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, event, version)
	}
	return decode(raw)
}

// JSONDecoder decodes the body into a fresh *T.
func JSONDecoder[T any]() Decoder {
	return func(raw json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
