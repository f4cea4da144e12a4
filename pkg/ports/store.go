package ports

import (
	"context"

	"github.com/aretw0/conformer/pkg/domain"
)

// ReportStore persists run reports keyed by their ID.
type ReportStore interface {
	// Save stores report under report.ID, replacing any previous version.
	Save(ctx context.Context, report *domain.RunReport) error

	// Load retrieves a report.
	// Returns domain.ErrReportNotFound if the ID is unknown.
	Load(ctx context.Context, id string) (*domain.RunReport, error)

	// Delete removes a report. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored reports.
	List(ctx context.Context) ([]string, error)
}
