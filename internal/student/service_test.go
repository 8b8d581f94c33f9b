package student

import (
	"context"
	"testing"

	"backend/internal/common"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testTenant = uuid.NewString()

func setupStudentService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Student{}))
	return NewService(db), db
}

func createStudent(t *testing.T, svc *Service, firstName string) *Student {
	t.Helper()

	s, err := svc.Create(context.Background(), &CreateRequest{
		TenantID:      testTenant,
		FirstName:     firstName,
		LastName:      "李",
		Grade:         "3",
		GuardianName:  "李女士",
		GuardianPhone: "13800000000",
	})
	require.NoError(t, err)
	return s
}

func TestCreateAndGetStudent(t *testing.T) {
	svc, _ := setupStudentService(t)
	ctx := context.Background()

	created := createStudent(t, svc, "明")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusActive, created.Status)

	got, err := svc.Get(ctx, created.ID, testTenant)
	require.NoError(t, err)
	assert.Equal(t, "明", got.FirstName)
	assert.Equal(t, "李女士", got.GuardianName)

	// 跨租户不可见
	_, err = svc.Get(ctx, created.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestUpdateStudentPartialFields(t *testing.T) {
	svc, _ := setupStudentService(t)
	ctx := context.Background()

	created := createStudent(t, svc, "明")

	newGrade := "4"
	updated, err := svc.Update(ctx, created.ID, testTenant, &UpdateRequest{Grade: &newGrade}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "4", updated.Grade)
	// 未提供的字段保持不变
	assert.Equal(t, "李女士", updated.GuardianName)
	assert.Equal(t, "admin", updated.UpdatedBy)
}

func TestDeleteStudentIsLogical(t *testing.T) {
	svc, db := setupStudentService(t)
	ctx := context.Background()

	created := createStudent(t, svc, "明")
	require.NoError(t, svc.Delete(ctx, created.ID, testTenant, "admin"))

	_, err := svc.Get(ctx, created.ID, testTenant)
	assert.ErrorIs(t, err, ErrStudentNotFound)

	// 记录仍在存储中，仅打了删除标记
	var raw Student
	require.NoError(t, db.Where("id = ?", created.ID).First(&raw).Error)
	assert.NotNil(t, raw.DeletedAt)
	assert.Equal(t, "admin", raw.DeletedBy)
}

func TestListStudentsPagination(t *testing.T) {
	svc, _ := setupStudentService(t)
	ctx := context.Background()

	for _, name := range []string{"一", "二", "三"} {
		createStudent(t, svc, name)
	}

	page := &common.PaginationRequest{Page: 1, PageSize: 2}
	students, total, err := svc.List(ctx, testTenant, "", page)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, students, 2)

	page.Page = 2
	students, _, err = svc.List(ctx, testTenant, "", page)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}
