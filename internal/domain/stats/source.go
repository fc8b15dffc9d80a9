package stats

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
)

// RawDay is one unparsed day returned by a provider. Parsing is deferred so a
// malformed day fails on its own.
type RawDay interface {
	Record() (DailyRecord, error)
}

// Source fetches pre-aggregated daily statistics from an external provider.
type Source interface {
	FetchDaily(ctx context.Context, identity employee.ExternalIdentity, from, to time.Time) ([]RawDay, error)
}
