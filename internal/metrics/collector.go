package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期刷新数据库连接池与申请状态分布两类面板指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			_ = c.updateStatusGauge()
		}
	}
}

// updateStatusGauge 刷新申请状态分布
func (c *Collector) updateStatusGauge() error {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := c.db.Table("applications").
		Select("status, COUNT(*) as count").
		Where("archived_at IS NULL").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		UpdateApplicationsByStatus(r.Status, float64(r.Count))
	}
	return nil
}
