package audit

import (
	"context"
	"sync"
	"time"

	"backend/internal/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultQueueSize = 256

// Sink 异步审计写入器
//
// Record 只负责入队，落库由后台协程完成，请求路径不会因为审计 IO 被拖慢。
// 队列满时丢弃事件并记日志——审计是尽力而为的旁路，不能反过来拖垮主链路
type Sink struct {
	db     *gorm.DB
	logger *zap.Logger
	queue  chan AuditLog

	closeOnce sync.Once
	done      chan struct{}
}

// NewSink 创建审计写入器并启动后台落库协程
func NewSink(db *gorm.DB, logger *zap.Logger) *Sink {
	s := &Sink{
		db:     db,
		logger: logger,
		queue:  make(chan AuditLog, defaultQueueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Record 将审计事件入队，队列满时丢弃
func (s *Sink) Record(entry AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case s.queue <- entry:
	default:
		metrics.AuditEventsDropped.Inc()
		s.logger.Warn("审计队列已满，事件被丢弃",
			zap.String("action", entry.Action),
			zap.String("tenantId", entry.TenantID),
		)
	}
}

// Close 停止接收新事件并等待队列排空
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
	})
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.queue {
		// 落库使用独立上下文：请求结束不应撤销已入队的审计写入
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			metrics.AuditWriteFailures.Inc()
			s.logger.Error("审计事件落库失败",
				zap.Error(err),
				zap.String("action", entry.Action),
			)
		}
		cancel()
	}
}
