package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/outbox/payloads"
)

func TestDecodersJSON(t *testing.T) {
	decoders := NewDecoders()
	decoders.Register(enums.EventCheckInCreated, 1, JSONDecoder[payloads.CheckInCreatedEvent]())

	out, err := decoders.Decode(enums.EventCheckInCreated, 1, json.RawMessage(`{"store_id":12,"brand":"ECO TEK","has_photo":true}`))
	require.NoError(t, err)

	event, ok := out.(*payloads.CheckInCreatedEvent)
	require.True(t, ok, "unexpected payload type %T", out)
	require.Equal(t, int64(12), event.StoreID)
	require.Equal(t, "ECO TEK", event.Brand)
	require.True(t, event.HasPhoto)
}

func TestDecodersRejectsUnknownVersion(t *testing.T) {
	decoders := NewDecoders()
	decoders.Register(enums.EventCheckInCreated, 1, JSONDecoder[payloads.CheckInCreatedEvent]())

	_, err := decoders.Decode(enums.EventCheckInCreated, 2, json.RawMessage(`{}`))
	require.True(t, errors.Is(err, ErrNoDecoder))
}

func TestDecodersSurfacesBadJSON(t *testing.T) {
	decoders := NewDecoders()
	decoders.Register(enums.EventCheckInCreated, 1, JSONDecoder[payloads.CheckInCreatedEvent]())

	_, err := decoders.Decode(enums.EventCheckInCreated, 1, json.RawMessage(`{"store_id":"twelve"}`))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoDecoder))
}
