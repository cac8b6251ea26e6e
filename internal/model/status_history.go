package model

import (
	"errors"
	"time"
)

// StatusHistoryModel 状态变更历史数据模型
// 只追加,每次状态转换恰好写入一条,创建事件也记录一条
type StatusHistoryModel struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)"`
	ApplicationID string    `gorm:"type:varchar(64);not null;index"`
	FromStatus    string    `gorm:"type:varchar(32)"` // 创建事件为空
	ToStatus      string    `gorm:"type:varchar(32);not null"`
	Actor         string    `gorm:"type:varchar(64);not null"`
	ActorRole     string    `gorm:"type:varchar(16);not null"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (StatusHistoryModel) TableName() string {
	return "status_history"
}

// Validate 验证状态历史模型
func (shm *StatusHistoryModel) Validate() error {
	if shm.ID == "" {
		return errors.New("history ID is required")
	}
	if shm.ApplicationID == "" {
		return errors.New("application ID is required")
	}
	if shm.ToStatus == "" {
		return errors.New("to status is required")
	}
	if shm.Actor == "" {
		return errors.New("actor is required")
	}
	return nil
}
