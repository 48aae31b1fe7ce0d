package classifier

import (
	"math"
	"strings"
)

var labelAliases = map[string]Label{
	"benign":         LabelBenign,
	"ham":            LabelBenign,
	"safe":           LabelBenign,
	"legit":          LabelBenign,
	"legitimate":     LabelBenign,
	"normal":         LabelBenign,
	"not_spam":       LabelBenign,
	"suspicious":     LabelSuspicious,
	"warning":        LabelSuspicious,
	"unknown":        LabelSuspicious,
	"spam_suspected": LabelSuspicious,
	"fraud":          LabelFraud,
	"spam":           LabelFraud,
	"scam":           LabelFraud,
	"phishing":       LabelFraud,
	"smishing":       LabelFraud,
	"fraudulent":     LabelFraud,
}

// NormalizeLabel maps a raw endpoint label onto the canonical enum. Labels
// outside the alias table fall back on confidence: suspicious at 0.5 or above,
// benign below.
func NormalizeLabel(raw string, confidence float64) Label {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if label, ok := labelAliases[key]; ok {
		return label
	}
	if confidence >= 0.5 {
		return LabelSuspicious
	}
	return LabelBenign
}

// NormalizeConfidence accepts fractions or percentages and clamps to [0,1]
func NormalizeConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1 && c <= 100:
		return c / 100
	case c > 100:
		return 1
	}
	return c
}

func normalize(w wireResult) Result {
	confidence := 0.0
	if w.Confidence != nil {
		confidence = NormalizeConfidence(*w.Confidence)
	}
	rationale := w.Rationale
	if rationale == "" {
		rationale = w.Message
	}
	return Result{
		Label:         NormalizeLabel(w.Label, confidence),
		Confidence:    confidence,
		Probabilities: w.Probabilities,
		Rationale:     rationale,
		RawLabel:      w.Label,
	}
}
