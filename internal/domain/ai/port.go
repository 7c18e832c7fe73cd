package ai

import (
	"context"

	"github.com/bryanwahyu/cyberguard/internal/domain/scans"
)

// Advisor writes a plain-language advisory for a finished verdict.
type Advisor interface {
	Advise(ctx context.Context, rec *scans.ScanRecord) (string, error)
	ModelName() string
}
