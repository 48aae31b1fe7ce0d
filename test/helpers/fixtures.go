package helpers

import (
	"encoding/json"
	"time"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/scan"
)

// BaseTime anchors fixture timestamps
var BaseTime = time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)

// FraudSMS is scored as fraud by fixture classifiers
const FraudSMS = "Congratulations! You won 500,000 RWF. Send 5,000 RWF to claim."

// BenignSMS is scored as benign by fixture classifiers
const BenignSMS = "You have received RWF 50,000 from John Doe. Your new balance is RWF 125,000."

// CreateRawMessage builds a scan input observed offset after BaseTime
func CreateRawMessage(sender, text string, offset time.Duration) scan.RawMessage {
	return scan.RawMessage{Sender: sender, Text: text, ObservedAt: BaseTime.Add(offset)}
}

// ScanBody renders messages as a POST /scans body
func ScanBody(messages ...scan.RawMessage) []byte {
	items := make([]map[string]interface{}, len(messages))
	for i, m := range messages {
		items[i] = map[string]interface{}{
			"sender":      m.Sender,
			"text":        m.Text,
			"observed_at": m.ObservedAt.Format(time.RFC3339Nano),
		}
	}
	body, _ := json.Marshal(map[string]interface{}{"messages": items})
	return body
}
