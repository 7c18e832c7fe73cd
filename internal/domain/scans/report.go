package scans

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Verdict thresholds. Heuristic constants kept for compatibility with stored reports.
const (
	maliciousBaseScore  = 80
	maliciousMaxScore   = 100
	suspiciousBaseScore = 40
	suspiciousMaxScore  = 79
	safeScore           = 10
	perEngineScore      = 5
)

// AnalysisStats value object
type AnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

// Report is the stable-shape verdict derived from a raw payload.
type Report struct {
	Status  Status        `json:"status"`
	Score   int           `json:"score"`
	Summary string        `json:"summary"`
	Reasons []string      `json:"reasons"`
	Stats   AnalysisStats `json:"stats"`
}

// BuildReport maps a raw payload to a verdict. It never fails: unknown
// shapes and unreadable counters count as zero.
func BuildReport(raw RawPayload) Report {
	stats := ExtractStats(raw)

	switch {
	case stats.Malicious > 0:
		return Report{
			Status:  StatusMalicious,
			Score:   cappedScore(maliciousBaseScore, stats.Malicious, maliciousMaxScore),
			Summary: "Multiple security engines flagged this target as malicious.",
			Reasons: []string{
				fmt.Sprintf("%d engine(s) marked it as malicious.", stats.Malicious),
				"Do not open/click/execute related content.",
			},
			Stats: stats,
		}
	case stats.Suspicious > 0:
		return Report{
			Status:  StatusSuspicious,
			Score:   cappedScore(suspiciousBaseScore, stats.Suspicious, suspiciousMaxScore),
			Summary: "At least one indicator appears suspicious.",
			Reasons: []string{
				fmt.Sprintf("%d engine(s) marked it as suspicious.", stats.Suspicious),
				"Use caution and verify with additional evidence.",
			},
			Stats: stats,
		}
	default:
		return Report{
			Status:  StatusSafe,
			Score:   safeScore,
			Summary: "No immediate malicious indicators were detected.",
			Reasons: []string{
				"No malicious engine hits were reported in this lookup.",
				"Continue monitoring because no scan is 100% perfect.",
			},
			Stats: stats,
		}
	}
}

// ExtractStats reads the engine counters from either the flat test/stub shape
// ({"stats": {...}}) or the VirusTotal v3 shape
// ({"data": {"attributes": {"last_analysis_stats": {...}}}}).
func ExtractStats(raw RawPayload) AnalysisStats {
	if m, ok := raw["stats"].(map[string]any); ok {
		return statsFromMap(m)
	}
	data, _ := raw["data"].(map[string]any)
	attrs, _ := data["attributes"].(map[string]any)
	if m, ok := attrs["last_analysis_stats"].(map[string]any); ok {
		return statsFromMap(m)
	}
	return AnalysisStats{}
}

func statsFromMap(m map[string]any) AnalysisStats {
	return AnalysisStats{
		Malicious:  counter(m["malicious"]),
		Suspicious: counter(m["suspicious"]),
		Harmless:   counter(m["harmless"]),
		Undetected: counter(m["undetected"]),
	}
}

// counter coerces a JSON value to a non-negative count; anything unreadable is 0.
func counter(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// cappedScore compares before multiplying so huge counts cannot overflow.
func cappedScore(base, count, limit int) int {
	if count > (limit-base)/perEngineScore {
		return limit
	}
	return min(base+perEngineScore*count, limit)
}
