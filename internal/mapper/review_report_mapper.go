package mapper

import (
	"encoding/json"
	"fmt"

	"doc-review-be/internal/entity"
	"doc-review-be/internal/model"

	"gorm.io/datatypes"
)

type ReviewReportMapper struct{}

func NewReviewReportMapper() *ReviewReportMapper {
	return &ReviewReportMapper{}
}

func (m *ReviewReportMapper) ToEntity(r *model.ReviewReport) (*entity.ReviewReport, error) {
	if r == nil {
		return nil, nil
	}

	statuses := map[string]string{}
	if len(r.Statuses) > 0 {
		if err := json.Unmarshal(r.Statuses, &statuses); err != nil {
			return nil, fmt.Errorf("decode statuses: %w", err)
		}
	}
	var documents []string
	if len(r.Documents) > 0 {
		if err := json.Unmarshal(r.Documents, &documents); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
	}

	return &entity.ReviewReport{
		Id:         r.ID,
		SessionId:  r.SessionID,
		GroupId:    r.GroupID,
		Statuses:   statuses,
		Summary:    r.Summary,
		Documents:  documents,
		TokenTotal: r.TokenTotal,
		CostTotal:  r.CostTotal,
		CreatedAt:  r.CreatedAt,
	}, nil
}

func (m *ReviewReportMapper) ToModel(r *entity.ReviewReport) (*model.ReviewReport, error) {
	if r == nil {
		return nil, nil
	}

	statuses := r.Statuses
	if statuses == nil {
		statuses = map[string]string{}
	}
	rawStatuses, err := json.Marshal(statuses)
	if err != nil {
		return nil, fmt.Errorf("encode statuses: %w", err)
	}
	documents := r.Documents
	if documents == nil {
		documents = []string{}
	}
	rawDocuments, err := json.Marshal(documents)
	if err != nil {
		return nil, fmt.Errorf("encode documents: %w", err)
	}

	return &model.ReviewReport{
		ID:         r.Id,
		SessionID:  r.SessionId,
		GroupID:    r.GroupId,
		Statuses:   datatypes.JSON(rawStatuses),
		Summary:    r.Summary,
		Documents:  datatypes.JSON(rawDocuments),
		TokenTotal: r.TokenTotal,
		CostTotal:  r.CostTotal,
		CreatedAt:  r.CreatedAt,
	}, nil
}
