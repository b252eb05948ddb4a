// Package dataset provides the test-case model and the content-addressed
// dataset store. A dataset's identity is a hash of its test cases, so the
// same suite generated twice maps to one stored row.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Assertion is a single grading rule attached to a test case.
type Assertion struct {
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Metric string `json:"metric,omitempty"`
}

// Metadata carries provenance for a test case.
type Metadata struct {
	PluginID  string            `json:"pluginId"`
	Severity  string            `json:"severity,omitempty"`
	Modifiers map[string]string `json:"modifiers,omitempty"`
}

// TestCase is one adversarial probe: input variables, grading rules, and
// provenance. Treat values as immutable once stored.
type TestCase struct {
	Vars     map[string]string `json:"vars"`
	Assert   []Assertion       `json:"assert,omitempty"`
	Metadata Metadata          `json:"metadata"`
}

// Dataset is a stored, content-addressed collection of test cases.
type Dataset struct {
	ID        string     `json:"id"`
	Tests     []TestCase `json:"tests"`
	TestCount int        `json:"testCount"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ComputeID derives the dataset identifier from its test cases: the hex
// SHA-256 of their JSON serialization. Ordering matters; reordered test
// cases produce a different identifier.
func ComputeID(tests []TestCase) (string, error) {
	if tests == nil {
		tests = []TestCase{}
	}

	encoded, err := json.Marshal(tests)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}
