package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior threat intelligence analyst helping a non-expert user. You receive the verdict of a reputation lookup (engine counts, status, score) for a URL or a file hash. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase risk_level values: high, medium, low.
- Base the advice only on the verdict provided; never claim to have opened the URL or the file.
- next_steps is an array of short imperative sentences, at most five.

Schema (example with empty values):
{
  "target": "<string>",
  "risk_level": "<high|medium|low>",
  "advice": "<string>",
  "next_steps": ["<string>"]
}`
}

// GetUserPrompt renders the stored verdict as a compact user message.
func GetUserPrompt(rec *scans.ScanRecord) string {
	stats := scans.ExtractStats(rawPayload(rec))
	var b strings.Builder
	fmt.Fprintf(&b, "Scan type: %s\n", rec.ScanType)
	fmt.Fprintf(&b, "Target: %s\n", target(rec))
	fmt.Fprintf(&b, "Status: %s (score %d/100)\n", rec.Status, rec.Score)
	fmt.Fprintf(&b, "Engines: malicious=%d suspicious=%d harmless=%d undetected=%d\n",
		stats.Malicious, stats.Suspicious, stats.Harmless, stats.Undetected)
	fmt.Fprintf(&b, "Summary: %s\n", rec.Summary)
	if len(rec.Reasons) > 0 {
		b.WriteString("Reasons:\n")
		for _, r := range rec.Reasons {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString("Respond with the JSON per schema.")
	return b.String()
}

// Advice matches the schema requested by the system prompt.
type Advice struct {
	Target    string   `json:"target"`
	RiskLevel string   `json:"risk_level"`
	Advice    string   `json:"advice"`
	NextSteps []string `json:"next_steps"`
}

// file scans only know the hash; url scans show the normalized url
func target(rec *scans.ScanRecord) string {
	if rec.ScanType == scans.ScanTypeFile {
		return "sha256:" + rec.ScanKey
	}
	return rec.ScanKey
}

func rawPayload(rec *scans.ScanRecord) scans.RawPayload {
	var raw scans.RawPayload
	if len(rec.RawResponse) == 0 {
		return raw
	}
	dec := json.NewDecoder(bytes.NewReader(rec.RawResponse))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil
	}
	return raw
}
