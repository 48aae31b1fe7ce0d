package scan

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/pkg/security"
)

const (
	maxTextRunes   = 4096
	maxSenderRunes = 64
)

var (
	textKeys   = []string{"text", "body", "message"}
	senderKeys = []string{"sender", "address", "phone"}
	timeKeys   = []string{"observed_at", "date", "timestamp"}
)

// NormalizeMessages converts loosely shaped device messages into RawMessages.
// Text is required; timestamps may be RFC3339 strings or Unix milliseconds.
func NormalizeMessages(items []map[string]interface{}) ([]RawMessage, error) {
	out := make([]RawMessage, 0, len(items))
	for i, item := range items {
		m, err := normalizeMessage(item)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidMessage, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func normalizeMessage(item map[string]interface{}) (RawMessage, error) {
	var m RawMessage

	text, _ := firstString(item, textKeys)
	text = security.TruncateString(security.SanitizeString(text), maxTextRunes)
	if text == "" {
		return m, fmt.Errorf("one of %s is required", strings.Join(textKeys, ", "))
	}
	m.Text = text
	sender, _ := firstString(item, senderKeys)
	m.Sender = security.SanitizeLine(sender, maxSenderRunes)

	for _, key := range timeKeys {
		v, present := item[key]
		if !present || v == nil {
			continue
		}
		at, err := parseTimestamp(v)
		if err != nil {
			return m, fmt.Errorf("%s: %v", key, err)
		}
		m.ObservedAt = at
		return m, nil
	}
	return m, fmt.Errorf("one of %s is required", strings.Join(timeKeys, ", "))
}

func firstString(item map[string]interface{}, keys []string) (string, bool) {
	for _, key := range keys {
		switch v := item[key].(type) {
		case string:
			return v, true
		case json.Number:
			return v.String(), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
	}
	return "", false
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return time.Time{}, fmt.Errorf("invalid timestamp %v", t)
		}
		return time.UnixMilli(int64(t)).UTC(), nil
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %s", t)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}
