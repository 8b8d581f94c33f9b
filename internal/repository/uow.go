package repository

import (
	"context"
	"reflect"
	"sync"

	"backend/internal/common"

	"gorm.io/gorm"
)

// changeKind 待提交变更的类型
type changeKind int

const (
	changeInsert changeKind = iota
	changeSave
)

// pendingChange 排队等待 SaveChanges 的一条变更
type pendingChange struct {
	kind   changeKind
	entity any
}

// UnitOfWork 工作单元，持有一个事务上下文并按类型缓存仓储实例
// 生命周期与单个请求绑定，不允许跨并发请求共享
type UnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB

	mu      sync.Mutex
	repos   map[reflect.Type]any
	pending []pendingChange
}

// NewUnitOfWork 创建工作单元
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{
		db:    db,
		repos: make(map[reflect.Type]any),
	}
}

// Of 返回绑定到该工作单元的 T 类型仓储
// 同一类型重复调用返回同一实例，注册表按类型缓存
func Of[T any](u *UnitOfWork) *Repository[T] {
	key := reflect.TypeOf((*T)(nil))

	u.mu.Lock()
	defer u.mu.Unlock()

	if cached, ok := u.repos[key]; ok {
		return cached.(*Repository[T])
	}

	repo := newRepository[T](u)
	u.repos[key] = repo
	return repo
}

// conn 返回当前数据库句柄：事务开启时返回事务，否则返回基础连接
// 仓储的读写都经过此方法，保证事务内的读能看到未提交写
func (u *UnitOfWork) conn() *gorm.DB {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

// BeginTransaction 开启显式事务
// 已有事务时再次调用属于编程错误，返回 TransactionStateError
func (u *UnitOfWork) BeginTransaction() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx != nil {
		return common.NewTransactionStateError("BeginTransaction", "transaction already open")
	}

	tx := u.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

// CommitTransaction 提交并释放事务，无事务时为空操作
func (u *UnitOfWork) CommitTransaction() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

// RollbackTransaction 回滚并释放事务，无事务时为空操作
func (u *UnitOfWork) RollbackTransaction() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// InTransaction 当前是否有显式事务开启
func (u *UnitOfWork) InTransaction() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx != nil
}

// SaveChanges 将所有仓储排队的 Add/Update 变更按调用顺序写入存储，
// 返回受影响的记录数。事务开启时变更属于该事务，
// 否则每条变更各自原子提交（由存储决定）
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int64, error) {
	u.mu.Lock()
	queued := u.pending
	u.pending = nil
	conn := u.db
	if u.tx != nil {
		conn = u.tx
	}
	u.mu.Unlock()

	var affected int64
	for i, change := range queued {
		var res *gorm.DB
		switch change.kind {
		case changeInsert:
			res = conn.WithContext(ctx).Create(change.entity)
		case changeSave:
			res = conn.WithContext(ctx).Save(change.entity)
		}
		if res.Error != nil {
			// 失败的及后续未写入的变更留在队列中，调用方可回滚后重试
			u.mu.Lock()
			remaining := make([]pendingChange, 0, len(queued)-i+len(u.pending))
			remaining = append(remaining, queued[i:]...)
			remaining = append(remaining, u.pending...)
			u.pending = remaining
			u.mu.Unlock()
			return affected, res.Error
		}
		affected += res.RowsAffected
	}
	return affected, nil
}

// Close 释放工作单元，未提交的事务一律回滚
// 必须在每个请求结束时调用（包括异常路径）
func (u *UnitOfWork) Close() error {
	return u.RollbackTransaction()
}

// enqueue 排队一条变更，等待 SaveChanges 统一写入
func (u *UnitOfWork) enqueue(kind changeKind, entity any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = append(u.pending, pendingChange{kind: kind, entity: entity})
}
