package types

import (
	"fmt"
	"strings"
)

// Metric selects one of the two numeric series every view can display.
type Metric string

const (
	Incidence Metric = "incidence"
	Deaths    Metric = "deaths"
)

// Metrics lists the supported metrics in display order.
var Metrics = []Metric{Incidence, Deaths}

// ParseMetric parses a metric name case-insensitively. An empty name selects
// Incidence, the default of every map view.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Incidence):
		return Incidence, nil
	case string(Deaths):
		return Deaths, nil
	}
	return "", fmt.Errorf("unknown metric %q (want incidence or deaths)", s)
}

// Toggle returns the other metric.
func (m Metric) Toggle() Metric {
	if m == Deaths {
		return Incidence
	}
	return Deaths
}

// Label is the human-readable series name.
func (m Metric) Label() string {
	if m == Deaths {
		return "Deaths"
	}
	return "Incidence"
}
