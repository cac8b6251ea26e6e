package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/model"
	"gorm.io/gorm"
)

// ApplicationFilter 申请检索过滤器
type ApplicationFilter struct {
	ApplicantID *string
	Status      *string
	LoanType    *string
	Location    *string
	Text        *string
	Page        int
	PageSize    int
	SortBy      string
	Order       string
}

// allowedSortFields 允许的排序字段白名单,防止 SQL 注入
var allowedSortFields = map[string]struct{}{
	"created_at":   {},
	"updated_at":   {},
	"submitted_at": {},
	"status":       {},
	"loan_type":    {},
}

// ApplicationRepository 申请仓储接口
type ApplicationRepository interface {
	Create(tx *gorm.DB, app *model.ApplicationModel) error
	FindByID(id string) (*model.ApplicationModel, error)
	FindByFilter(filter *ApplicationFilter) ([]*model.ApplicationModel, int64, error)
	// UpdateStatusCAS 状态比较交换:仅当当前状态等于 fromStatus 时写入 toStatus,
	// 返回是否命中。保证每个申请的状态转换按实体串行化
	UpdateStatusCAS(tx *gorm.DB, id, fromStatus, toStatus string, updatedAt time.Time) (bool, error)
	UpdateReviewNotes(id, notes string, updatedAt time.Time) (bool, error)
	Archive(id string, archivedAt time.Time) (bool, error)
	CountByStatus() (map[string]int64, error)
	CountByLoanType() (map[string]int64, error)
	CountSubmittedSince(since, until time.Time) (int64, error)
}

// applicationRepository 申请仓储实现
type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository 创建申请仓储
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create 创建申请,tx 为 nil 时使用默认连接
func (r *applicationRepository) Create(tx *gorm.DB, app *model.ApplicationModel) error {
	db := tx
	if db == nil {
		db = r.db
	}
	return db.Create(app).Error
}

// FindByID 根据 ID 查找申请
func (r *applicationRepository) FindByID(id string) (*model.ApplicationModel, error) {
	var app model.ApplicationModel
	if err := r.db.Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByFilter 根据过滤器检索申请
func (r *applicationRepository) FindByFilter(filter *ApplicationFilter) ([]*model.ApplicationModel, int64, error) {
	query := r.db.Model(&model.ApplicationModel{}).Where("archived_at IS NULL")

	if filter.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *filter.ApplicantID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.LoanType != nil {
		query = query.Where("loan_type = ?", *filter.LoanType)
	}
	if filter.Location != nil {
		query = query.Where("location LIKE ?", "%"+*filter.Location+"%")
	}
	if filter.Text != nil {
		// 对个人信息与贷款详情的序列化内容做子串匹配
		pattern := "%" + *filter.Text + "%"
		query = query.Where("personal_info LIKE ? OR loan_details LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if _, ok := allowedSortFields[sortBy]; !ok {
		return nil, 0, fmt.Errorf("invalid sort field: %q", sortBy)
	}

	order := strings.ToUpper(filter.Order)
	if order == "" {
		order = "DESC"
	}
	if order != "ASC" && order != "DESC" {
		return nil, 0, fmt.Errorf("invalid sort order: %q", filter.Order)
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, order))

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var apps []*model.ApplicationModel
	if err := query.Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query applications: %w", err)
	}

	return apps, total, nil
}

// UpdateStatusCAS 带状态检查的更新
func (r *applicationRepository) UpdateStatusCAS(tx *gorm.DB, id, fromStatus, toStatus string, updatedAt time.Time) (bool, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	result := db.Model(&model.ApplicationModel{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateReviewNotes 更新审查备注,不触碰状态
func (r *applicationRepository) UpdateReviewNotes(id, notes string, updatedAt time.Time) (bool, error) {
	result := r.db.Model(&model.ApplicationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"review_notes": notes,
			"updated_at":   updatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Archive 软归档申请
func (r *applicationRepository) Archive(id string, archivedAt time.Time) (bool, error) {
	result := r.db.Model(&model.ApplicationModel{}).
		Where("id = ? AND archived_at IS NULL", id).
		Updates(map[string]interface{}{
			"archived_at": archivedAt,
			"updated_at":  archivedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// CountByStatus 按状态统计申请数
func (r *applicationRepository) CountByStatus() (map[string]int64, error) {
	var results []struct {
		Status string
		Count  int64
	}
	err := r.db.Model(&model.ApplicationModel{}).
		Where("archived_at IS NULL").
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count applications by status: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountByLoanType 按贷款类型统计申请数
func (r *applicationRepository) CountByLoanType() (map[string]int64, error) {
	var results []struct {
		LoanType string
		Count    int64
	}
	err := r.db.Model(&model.ApplicationModel{}).
		Where("archived_at IS NULL").
		Select("loan_type, COUNT(*) as count").
		Group("loan_type").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count applications by loan type: %w", err)
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.LoanType] = r.Count
	}
	return counts, nil
}

// CountSubmittedSince 统计提交时间落在 [since, until) 的申请数
func (r *applicationRepository) CountSubmittedSince(since, until time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ApplicationModel{}).
		Where("archived_at IS NULL").
		Where("submitted_at >= ? AND submitted_at < ?", since, until).
		Count(&count).Error
	return count, err
}
