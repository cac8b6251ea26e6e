package model

import (
	"errors"
	"time"
)

// DocumentModel 文档元数据模型
// 只记录外部对象存储返回的引用 URL,字节内容不经过本服务
// OwnerKind/OwnerID 指向拥有它的草稿或申请,提交时整体重挂到新申请
type DocumentModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	OwnerID      string    `gorm:"type:varchar(64);not null;index:idx_documents_owner"`
	OwnerKind    string    `gorm:"type:varchar(16);not null;index:idx_documents_owner"`
	DocumentType string    `gorm:"type:varchar(32);not null"`
	DocumentURL  string    `gorm:"type:text;not null"`
	UploadedAt   time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (DocumentModel) TableName() string {
	return "documents"
}

// Validate 验证文档模型
func (dm *DocumentModel) Validate() error {
	if dm.ID == "" {
		return errors.New("document ID is required")
	}
	if dm.OwnerID == "" {
		return errors.New("owner ID is required")
	}
	if dm.OwnerKind == "" {
		return errors.New("owner kind is required")
	}
	if dm.DocumentType == "" {
		return errors.New("document type is required")
	}
	if dm.DocumentURL == "" {
		return errors.New("document URL is required")
	}
	return nil
}
