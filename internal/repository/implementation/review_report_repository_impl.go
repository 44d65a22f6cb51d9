package implementation

import (
	"context"
	"errors"

	"doc-review-be/internal/entity"
	"doc-review-be/internal/mapper"
	"doc-review-be/internal/model"
	"doc-review-be/internal/repository/contract"
	"doc-review-be/internal/repository/specification"

	"gorm.io/gorm"
)

type reviewReportRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ReviewReportMapper
}

func NewReviewReportRepository(db *gorm.DB) contract.ReviewReportRepository {
	return &reviewReportRepositoryImpl{db: db, mapper: mapper.NewReviewReportMapper()}
}

func (r *reviewReportRepositoryImpl) Create(ctx context.Context, report *entity.ReviewReport) error {
	m, err := r.mapper.ToModel(report)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	report.Id = m.ID
	report.CreatedAt = m.CreatedAt
	return nil
}

func (r *reviewReportRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ReviewReport, error) {
	var m model.ReviewReport
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *reviewReportRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ReviewReport, error) {
	var models []*model.ReviewReport
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	reports := make([]*entity.ReviewReport, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		reports = append(reports, e)
	}
	return reports, nil
}

func (r *reviewReportRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.ReviewReport{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
