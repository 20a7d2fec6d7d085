package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskLabel is the predicted severity of an alert. Labels are ordered:
// Low < Moderate < Severe.
type RiskLabel int

const (
	RiskLow      RiskLabel = 1
	RiskModerate RiskLabel = 2
	RiskSevere   RiskLabel = 3
)

// RiskLabels lists every label in ascending order.
var RiskLabels = []RiskLabel{RiskLow, RiskModerate, RiskSevere}

func (l RiskLabel) String() string {
	switch l {
	case RiskLow:
		return "Low"
	case RiskModerate:
		return "Moderate"
	case RiskSevere:
		return "Severe"
	default:
		return fmt.Sprintf("RiskLabel(%d)", int(l))
	}
}

// Valid reports whether l is one of the defined labels.
func (l RiskLabel) Valid() bool {
	return l >= RiskLow && l <= RiskSevere
}

// Notice returns the notification tier shown next to an alert.
func (l RiskLabel) Notice() string {
	switch l {
	case RiskSevere:
		return "critical"
	case RiskModerate:
		return "moderate"
	default:
		return "low"
	}
}

// ParseRiskLabel accepts a label name (case-insensitive) or its ordinal.
func ParseRiskLabel(s string) (RiskLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "1":
		return RiskLow, nil
	case "moderate", "2":
		return RiskModerate, nil
	case "severe", "3":
		return RiskSevere, nil
	default:
		return 0, fmt.Errorf("unknown risk label %q", s)
	}
}

func (l RiskLabel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("marshal risk label: invalid value %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *RiskLabel) UnmarshalText(text []byte) error {
	v, err := ParseRiskLabel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Classification is the predicted label of a text and the posterior
// probability of every label.
type Classification struct {
	Label         RiskLabel
	Probabilities map[RiskLabel]float64
}

type classificationJSON struct {
	Label         RiskLabel             `json:"label"`
	Notice        string                `json:"notice"`
	Probabilities map[RiskLabel]float64 `json:"probabilities"`
}

func (c Classification) MarshalJSON() ([]byte, error) {
	return json.Marshal(classificationJSON{
		Label:         c.Label,
		Notice:        c.Label.Notice(),
		Probabilities: c.Probabilities,
	})
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	var v classificationJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	c.Label = v.Label
	c.Probabilities = v.Probabilities
	return nil
}
