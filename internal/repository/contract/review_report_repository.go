package contract

import (
	"context"

	"doc-review-be/internal/entity"
	"doc-review-be/internal/repository/specification"
)

type ReviewReportRepository interface {
	Create(ctx context.Context, report *entity.ReviewReport) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ReviewReport, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ReviewReport, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
