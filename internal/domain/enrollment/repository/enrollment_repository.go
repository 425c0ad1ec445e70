package repository

import (
	"kindergarten_billing/internal/domain/enrollment/model"

	"gorm.io/gorm"
)

// EnrollmentRepository 报名记录只读查询，供收费模块校验外键
type EnrollmentRepository interface {
	GetByID(id string) (*model.Enrollment, error)
	StudentExists(id string) (bool, error)
	KindergartenExists(id string) (bool, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := r.db.First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) StudentExists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Student{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepository) KindergartenExists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Kindergarten{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
