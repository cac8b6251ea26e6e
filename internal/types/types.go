package types

import (
	"encoding/json"
	"fmt"
)

// ApplicationStatus 申请状态
// 状态只能沿 submitted -> under_review -> approved/rejected 单向推进
type ApplicationStatus string

const (
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// statusOrdinals 状态顺序,用于校验状态历史单调递增
var statusOrdinals = map[ApplicationStatus]int{
	StatusSubmitted:   1,
	StatusUnderReview: 2,
	StatusApproved:    3,
	StatusRejected:    3,
}

// Valid 检查状态是否合法
func (s ApplicationStatus) Valid() bool {
	_, ok := statusOrdinals[s]
	return ok
}

// Ordinal 返回状态顺序值,非法状态返回 0
func (s ApplicationStatus) Ordinal() int {
	return statusOrdinals[s]
}

// IsTerminal 检查状态是否为终态
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// UnmarshalJSON 反序列化时拒绝非法状态值
func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status := ApplicationStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("invalid application status: %q", raw)
	}
	*s = status
	return nil
}

// AllStatuses 返回全部状态,顺序固定(用于统计输出)
func AllStatuses() []ApplicationStatus {
	return []ApplicationStatus{StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected}
}

// LoanType 贷款类型
type LoanType string

const (
	LoanTypeRent LoanType = "rent"
	LoanTypeLand LoanType = "land"
)

// Valid 检查贷款类型是否合法
func (t LoanType) Valid() bool {
	return t == LoanTypeRent || t == LoanTypeLand
}

// UnmarshalJSON 反序列化时拒绝非法贷款类型
func (t *LoanType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lt := LoanType(raw)
	if !lt.Valid() {
		return fmt.Errorf("invalid loan type: %q", raw)
	}
	*t = lt
	return nil
}

// AllLoanTypes 返回全部贷款类型
func AllLoanTypes() []LoanType {
	return []LoanType{LoanTypeRent, LoanTypeLand}
}

// DocumentType 文档类型
type DocumentType string

const (
	DocumentIDCard           DocumentType = "id_card"
	DocumentProofOfIncome    DocumentType = "proof_of_income"
	DocumentBankStatement    DocumentType = "bank_statement"
	DocumentTenancyAgreement DocumentType = "tenancy_agreement"
	DocumentLandTitle        DocumentType = "land_title"
	DocumentOther            DocumentType = "other"
)

var documentTypes = map[DocumentType]struct{}{
	DocumentIDCard:           {},
	DocumentProofOfIncome:    {},
	DocumentBankStatement:    {},
	DocumentTenancyAgreement: {},
	DocumentLandTitle:        {},
	DocumentOther:            {},
}

// Valid 检查文档类型是否合法
func (t DocumentType) Valid() bool {
	_, ok := documentTypes[t]
	return ok
}

// UnmarshalJSON 反序列化时拒绝非法文档类型
func (t *DocumentType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dt := DocumentType(raw)
	if !dt.Valid() {
		return fmt.Errorf("invalid document type: %q", raw)
	}
	*t = dt
	return nil
}

// Role 操作者角色
type Role string

const (
	RoleApplicant     Role = "applicant"
	RoleAdministrator Role = "administrator"
)

// Valid 检查角色是否合法
func (r Role) Valid() bool {
	return r == RoleApplicant || r == RoleAdministrator
}

// OwnerKind 文档归属实体类型
type OwnerKind string

const (
	OwnerDraft       OwnerKind = "draft"
	OwnerApplication OwnerKind = "application"
)

// Valid 检查归属类型是否合法
func (k OwnerKind) Valid() bool {
	return k == OwnerDraft || k == OwnerApplication
}
