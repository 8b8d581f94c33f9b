package infra

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormLogger "gorm.io/gorm/logger"
)

// 慢查询阈值：租户隔离与软删除过滤都走索引，超过阈值基本意味着缺索引
const slowQueryThreshold = 200 * time.Millisecond

// GormZapLogger 把 GORM 的 SQL 日志导入 zap
// 记录未找到不算错误：仓储的 GetByID 约定未命中返回 nil 而不是报错
type GormZapLogger struct {
	zapLogger *zap.Logger
	level     gormLogger.LogLevel
}

// NewGormZapLogger 创建适配器
func NewGormZapLogger(zapLogger *zap.Logger, level gormLogger.LogLevel) *GormZapLogger {
	return &GormZapLogger{zapLogger: zapLogger, level: level}
}

// LogMode 设置日志级别
func (l *GormZapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info 日志
func (l *GormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

// Warn 日志
func (l *GormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

// Error 日志
func (l *GormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace SQL 执行日志
func (l *GormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
	}
	// rows 为 -1 表示驱动未统计行数（如 DDL）
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}

	if err != nil && !errors.Is(err, gormLogger.ErrRecordNotFound) {
		fields = append(fields, zap.Error(err))
		l.zapLogger.Error("SQL 执行错误", fields...)
		return
	}

	if elapsed > slowQueryThreshold {
		l.zapLogger.Warn("SQL 慢查询", fields...)
		return
	}

	if l.level >= gormLogger.Info {
		l.zapLogger.Debug("SQL 执行", fields...)
	}
}
