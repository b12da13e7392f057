package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyAcceptsStringsAndNumbers(t *testing.T) {
	var data JoinRoomData

	require.NoError(t, json.Unmarshal([]byte(`{"roomKey":42}`), &data))
	assert.Equal(t, json.Number("42"), data.RoomKey.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"roomKey":"42"}`), &data))
	assert.Equal(t, "42", data.RoomKey.Value)

	data = JoinRoomData{}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &data))
	assert.True(t, data.RoomKey.Empty())

	require.NoError(t, json.Unmarshal([]byte(`{"roomKey":null}`), &data))
	assert.True(t, data.RoomKey.Empty())

	require.Error(t, json.Unmarshal([]byte(`{"roomKey":{"a":1}}`), &data))
}
