package classifier

import "context"

// Label is the canonical classification outcome
type Label string

const (
	LabelBenign     Label = "benign"
	LabelSuspicious Label = "suspicious"
	LabelFraud      Label = "fraud"
)

// Valid reports whether l is one of the three canonical labels
func (l Label) Valid() bool {
	switch l {
	case LabelBenign, LabelSuspicious, LabelFraud:
		return true
	}
	return false
}

// IsAlert reports whether the label produces an alert feed entry
func (l Label) IsAlert() bool {
	return l == LabelSuspicious || l == LabelFraud
}

// Result is a normalized classifier verdict
type Result struct {
	Label         Label              `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Rationale     string             `json:"rationale,omitempty"`
	// RawLabel is the label exactly as the scoring endpoint returned it.
	RawLabel string `json:"raw_label,omitempty"`
}

// Classifier scores message text
type Classifier interface {
	Classify(ctx context.Context, text string) (*Result, error)
	ClassifyBatch(ctx context.Context, texts []string) ([]Result, error)
}

type singleRequest struct {
	Text string `json:"text"`
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

type wireResult struct {
	Label         string             `json:"label"`
	Confidence    *float64           `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Rationale     string             `json:"rationale"`
	Message       string             `json:"message"`
}
