package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateReviewSessionResponse struct {
	SessionId string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CriterionStatusDTO struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Color  string `json:"color"`
}

type UsageDTO struct {
	TokenTotal int64   `json:"token_total"`
	CostTotal  float64 `json:"cost_total"`
}

type DocumentDTO struct {
	FileName string `json:"file_name"`
	State    string `json:"state"`
	Color    string `json:"color"`
}

type TranscriptEntryDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BoardResponse is everything a client renders for one session.
type BoardResponse struct {
	SessionId       string               `json:"session_id"`
	ActiveAssistant string               `json:"active_assistant,omitempty"`
	Criteria        []CriterionStatusDTO `json:"criteria"`
	Usage           UsageDTO             `json:"usage"`
	Documents       []DocumentDTO        `json:"documents"`
	Transcript      []TranscriptEntryDTO `json:"transcript"`
}

type CheckGroupDTO struct {
	Id        string   `json:"id"`
	Title     string   `json:"title"`
	Assistant string   `json:"assistant"`
	Criteria  []string `json:"criteria"`
}

type CheckResultDTO struct {
	Criterion string `json:"criterion"`
	Status    string `json:"status"`
	Color     string `json:"color"`
	Reply     string `json:"reply"`
}

type RunCheckGroupResponse struct {
	GroupId string           `json:"group_id"`
	Checks  []CheckResultDTO `json:"checks"`
	Summary string           `json:"summary"`
	Usage   UsageDTO         `json:"usage"`
}

type SendChatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

type SendChatResponse struct {
	Reply string   `json:"reply"`
	Usage UsageDTO `json:"usage"`
}

type ToggleDocumentResponse struct {
	FileName string `json:"file_name"`
	State    string `json:"state"`
	Color    string `json:"color"`
}

type EmailReportRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ReviewReportDTO struct {
	Id         uuid.UUID         `json:"id"`
	GroupId    string            `json:"group_id"`
	Statuses   map[string]string `json:"statuses"`
	Summary    string            `json:"summary"`
	Documents  []string          `json:"documents"`
	TokenTotal int64             `json:"token_total"`
	CostTotal  float64           `json:"cost_total"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CheckGroupCompletedMessage travels on the in-process bus to the archive.
type CheckGroupCompletedMessage struct {
	SessionId   string            `json:"session_id"`
	GroupId     string            `json:"group_id"`
	Statuses    map[string]string `json:"statuses"`
	Summary     string            `json:"summary"`
	Documents   []string          `json:"documents"`
	TokenTotal  int64             `json:"token_total"`
	CostTotal   float64           `json:"cost_total"`
	CompletedAt time.Time         `json:"completed_at"`
}
