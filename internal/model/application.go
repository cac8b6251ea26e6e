package model

import (
	"errors"
	"time"
)

// ApplicationModel 贷款申请数据模型
// 申请仅在提交时由草稿晋升产生,标识不可变,状态只通过生命周期引擎推进
type ApplicationModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)"`
	ApplicantID  string     `gorm:"type:varchar(64);not null;index"`
	Status       string     `gorm:"type:varchar(32);not null;index"`
	LoanType     string     `gorm:"type:varchar(16);not null;index"`
	Location     string     `gorm:"type:varchar(255);index"` // 物业/地块位置,用于检索
	PersonalInfo []byte     `gorm:"type:jsonb;not null"`
	Employment   []byte     `gorm:"type:jsonb;not null"`
	LoanDetails  []byte     `gorm:"type:jsonb;not null"`
	ReviewNotes  string     `gorm:"type:text"`
	SubmittedAt  *time.Time `gorm:"index"`
	ArchivedAt   *time.Time `gorm:"index"` // 软归档时间,申请永不物理删除
	CreatedAt    time.Time  `gorm:"not null;index"`
	UpdatedAt    time.Time  `gorm:"not null;index"`
}

// TableName 指定表名
func (ApplicationModel) TableName() string {
	return "applications"
}

// Validate 验证申请模型
func (am *ApplicationModel) Validate() error {
	if am.ID == "" {
		return errors.New("application ID is required")
	}
	if am.ApplicantID == "" {
		return errors.New("applicant ID is required")
	}
	if am.Status == "" {
		return errors.New("application status is required")
	}
	if len(am.LoanDetails) == 0 {
		return errors.New("loan details are required")
	}
	return nil
}
