// Package expect compares observed values against expectations and renders
// readable diffs for failure messages.
package expect

import (
	"encoding/json"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// JSONEqual reports whether two JSON documents are semantically equal
// (key order and whitespace are ignored). When they differ, diff holds a
// line-oriented rendering of the mismatch suitable for a failure message.
func JSONEqual(expected, actual []byte) (equal bool, diff string, err error) {
	expNorm, err := normalize(expected)
	if err != nil {
		return false, "", fmt.Errorf("expected document: %w", err)
	}
	actNorm, err := normalize(actual)
	if err != nil {
		return false, "", fmt.Errorf("actual document: %w", err)
	}

	if expNorm == actNorm {
		return true, "", nil
	}

	return false, Diff(expNorm, actNorm), nil
}

// Diff renders a compact text diff between two strings.
func Diff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyText(diffs)
}

// normalize re-marshals a JSON document into a canonical indented form with
// sorted object keys, so equal documents render identically.
func normalize(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
