package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
)

// Document 文档视图
type Document struct {
	ID           string             `json:"id"`
	OwnerID      string             `json:"owner_id"`
	OwnerKind    types.OwnerKind    `json:"owner_kind"`
	DocumentType types.DocumentType `json:"document_type"`
	DocumentURL  string             `json:"document_url"`
	UploadedAt   time.Time          `json:"uploaded_at"`
}

// Draft 草稿视图
type Draft struct {
	ID           string              `json:"id"`
	ApplicantID  string              `json:"applicant_id"`
	CurrentStep  string              `json:"current_step"`
	PersonalInfo *model.PersonalInfo `json:"personal_info,omitempty"`
	Employment   *model.Employment   `json:"employment,omitempty"`
	LoanDetails  *model.LoanDetails  `json:"loan_details,omitempty"`
	Documents    []*Document         `json:"documents"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// StatusChange 状态历史条目视图
type StatusChange struct {
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	ActorRole  string    `json:"actor_role"`
	Timestamp  time.Time `json:"timestamp"`
}

// Application 申请视图
type Application struct {
	ID            string                  `json:"id"`
	ApplicantID   string                  `json:"applicant_id"`
	Status        types.ApplicationStatus `json:"status"`
	LoanType      types.LoanType          `json:"loan_type"`
	PersonalInfo  *model.PersonalInfo     `json:"personal_info"`
	Employment    *model.Employment       `json:"employment"`
	LoanDetails   *model.LoanDetails      `json:"loan_details"`
	Documents     []*Document             `json:"documents"`
	ReviewNotes   string                  `json:"review_notes,omitempty"`
	StatusHistory []*StatusChange         `json:"status_history"`
	SubmittedAt   *time.Time              `json:"submitted_at,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// documentView 模型转视图
func documentView(m *model.DocumentModel) *Document {
	return &Document{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		OwnerKind:    types.OwnerKind(m.OwnerKind),
		DocumentType: types.DocumentType(m.DocumentType),
		DocumentURL:  m.DocumentURL,
		UploadedAt:   m.UploadedAt,
	}
}

// decodeInto 反序列化 jsonb 列,空列返回 nil 不报错
func decodeInto(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// draftView 模型转视图
func draftView(m *model.DraftModel, docs []*model.DocumentModel) (*Draft, error) {
	d := &Draft{
		ID:          m.ID,
		ApplicantID: m.ApplicantID,
		CurrentStep: m.CurrentStep,
		Documents:   make([]*Document, 0, len(docs)),
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.PersonalInfo) > 0 {
		d.PersonalInfo = &model.PersonalInfo{}
		if err := decodeInto(m.PersonalInfo, d.PersonalInfo); err != nil {
			return nil, fmt.Errorf("failed to decode personal info: %w", err)
		}
	}
	if len(m.Employment) > 0 {
		d.Employment = &model.Employment{}
		if err := decodeInto(m.Employment, d.Employment); err != nil {
			return nil, fmt.Errorf("failed to decode employment: %w", err)
		}
	}
	if len(m.LoanDetails) > 0 {
		d.LoanDetails = &model.LoanDetails{}
		if err := decodeInto(m.LoanDetails, d.LoanDetails); err != nil {
			return nil, fmt.Errorf("failed to decode loan details: %w", err)
		}
	}
	for _, doc := range docs {
		d.Documents = append(d.Documents, documentView(doc))
	}
	return d, nil
}

// applicationView 模型转视图
func applicationView(m *model.ApplicationModel, docs []*model.DocumentModel, history []*model.StatusHistoryModel) (*Application, error) {
	a := &Application{
		ID:            m.ID,
		ApplicantID:   m.ApplicantID,
		Status:        types.ApplicationStatus(m.Status),
		LoanType:      types.LoanType(m.LoanType),
		PersonalInfo:  &model.PersonalInfo{},
		Employment:    &model.Employment{},
		LoanDetails:   &model.LoanDetails{},
		Documents:     make([]*Document, 0, len(docs)),
		ReviewNotes:   m.ReviewNotes,
		StatusHistory: make([]*StatusChange, 0, len(history)),
		SubmittedAt:   m.SubmittedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if err := decodeInto(m.PersonalInfo, a.PersonalInfo); err != nil {
		return nil, fmt.Errorf("failed to decode personal info: %w", err)
	}
	if err := decodeInto(m.Employment, a.Employment); err != nil {
		return nil, fmt.Errorf("failed to decode employment: %w", err)
	}
	if err := decodeInto(m.LoanDetails, a.LoanDetails); err != nil {
		return nil, fmt.Errorf("failed to decode loan details: %w", err)
	}
	for _, doc := range docs {
		a.Documents = append(a.Documents, documentView(doc))
	}
	for _, h := range history {
		a.StatusHistory = append(a.StatusHistory, &StatusChange{
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Actor:      h.Actor,
			ActorRole:  h.ActorRole,
			Timestamp:  h.CreatedAt,
		})
	}
	return a, nil
}
