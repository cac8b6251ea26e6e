package model

import (
	"errors"
	"time"
)

// DraftModel 草稿数据模型
// 草稿是申请的可变前身,提交时被消费(转换而非删除语义)
// Version 列用于乐观并发控制,避免同一申请人的并发部分更新互相覆盖
type DraftModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	ApplicantID  string    `gorm:"type:varchar(64);not null;index"`
	CurrentStep  string    `gorm:"type:varchar(64);not null"`
	PersonalInfo []byte    `gorm:"type:jsonb"`
	Employment   []byte    `gorm:"type:jsonb"`
	LoanDetails  []byte    `gorm:"type:jsonb"`
	Version      int64     `gorm:"not null;default:1"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (DraftModel) TableName() string {
	return "drafts"
}

// Validate 验证草稿模型
func (dm *DraftModel) Validate() error {
	if dm.ID == "" {
		return errors.New("draft ID is required")
	}
	if dm.ApplicantID == "" {
		return errors.New("applicant ID is required")
	}
	if dm.CurrentStep == "" {
		return errors.New("current step is required")
	}
	return nil
}
