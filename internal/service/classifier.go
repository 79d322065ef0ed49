package service

import (
	"net/http"
	"strings"
)

// Verdict is the classifier's reading of one upstream response
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictEmpty
	VerdictMalformed
	VerdictBlocked
	VerdictEndOfData
	VerdictUnavailable
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictEmpty:
		return "empty"
	case VerdictMalformed:
		return "malformed"
	case VerdictBlocked:
		return "blocked"
	case VerdictEndOfData:
		return "end of data"
	case VerdictUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Classifier decides whether a response body is usable draw data.
// Every verdict other than VerdictOK is treated as a failed page.
type Classifier interface {
	Classify(status int, body string) Verdict
}

// blockMarkers are lowercase substrings seen on challenge and ban pages
var blockMarkers = []string{
	"captcha",
	"blocked",
	"access denied",
	"cf-chl",
	"cf-browser-verification",
	"just a moment",
	"attention required",
}

// HeuristicClassifier applies substring heuristics to status and body
type HeuristicClassifier struct {
	BlockMarkers []string
	// TableMarker must appear for the body to count as draw rows
	TableMarker string
}

// NewHeuristicClassifier creates the default classifier for the results endpoint
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		BlockMarkers: blockMarkers,
		TableMarker:  "<tr",
	}
}

// Classify checks status first, then body shape, then anti-bot markers
func (c *HeuristicClassifier) Classify(status int, body string) Verdict {
	if status >= http.StatusInternalServerError {
		return VerdictUnavailable
	}
	if status >= http.StatusBadRequest {
		return VerdictEndOfData
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return VerdictEmpty
	}
	if !strings.Contains(trimmed, "<") || !strings.Contains(trimmed, ">") {
		return VerdictMalformed
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range c.BlockMarkers {
		if strings.Contains(lower, marker) {
			return VerdictBlocked
		}
	}

	if c.TableMarker != "" && !strings.Contains(lower, c.TableMarker) {
		return VerdictMalformed
	}

	return VerdictOK
}
