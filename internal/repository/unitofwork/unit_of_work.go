package unitofwork

import (
	"context"

	"doc-review-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ReviewReportRepository() contract.ReviewReportRepository
}
