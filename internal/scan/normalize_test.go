package scan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMessages_AcceptsLooseShapes(t *testing.T) {
	raw := `[
		{"sender":"MTN","text":"You won","observed_at":"2024-08-01T09:00:00Z"},
		{"address":"+250788","body":"Send money","date":1722502800000},
		{"phone":"Airtel","message":"Balance","timestamp":"1722502800000"}
	]`
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &items))

	msgs, err := NormalizeMessages(items)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	want := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, RawMessage{Sender: "MTN", Text: "You won", ObservedAt: want}, msgs[0])
	assert.Equal(t, "+250788", msgs[1].Sender)
	assert.Equal(t, "Send money", msgs[1].Text)
	assert.True(t, want.Equal(msgs[1].ObservedAt))
	assert.Equal(t, "Airtel", msgs[2].Sender)
	assert.True(t, want.Equal(msgs[2].ObservedAt))
}

func TestNormalizeMessages_Rejections(t *testing.T) {
	tests := []struct {
		name string
		item map[string]interface{}
	}{
		{name: "no text", item: map[string]interface{}{"sender": "x", "date": float64(1)}},
		{name: "blank text", item: map[string]interface{}{"text": "   ", "date": float64(1)}},
		{name: "no timestamp", item: map[string]interface{}{"text": "hi"}},
		{name: "bad timestamp", item: map[string]interface{}{"text": "hi", "date": "yesterday"}},
		{name: "negative timestamp", item: map[string]interface{}{"text": "hi", "date": float64(-5)}},
		{name: "wrong type", item: map[string]interface{}{"text": "hi", "date": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeMessages([]map[string]interface{}{tt.item})
			assert.ErrorIs(t, err, ErrInvalidMessage)
			assert.Contains(t, err.Error(), "index 0")
		})
	}
}

func TestNormalizeMessages_Empty(t *testing.T) {
	msgs, err := NormalizeMessages(nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestNormalizeMessages_SanitizesFields(t *testing.T) {
	msgs, err := NormalizeMessages([]map[string]interface{}{{
		"sender": "  MTN\x07\n MoMo ",
		"text":   "\x00 You won\r\n 500,000 RWF ",
		"date":   float64(1722502800000),
	}})
	require.NoError(t, err)
	assert.Equal(t, "MTN MoMo", msgs[0].Sender)
	assert.Equal(t, "You won\n 500,000 RWF", msgs[0].Text)

	_, err = NormalizeMessages([]map[string]interface{}{{"text": "\x00\x01", "date": float64(1)}})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
