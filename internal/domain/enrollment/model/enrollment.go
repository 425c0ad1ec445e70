package model

import (
	baseModel "kindergarten_billing/pkg/model"
)

// 报名关系由招生模块维护，收费模块只读引用

// Kindergarten 园所
type Kindergarten struct {
	baseModel.BaseModel
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

func (Kindergarten) TableName() string {
	return "kindergartens"
}

// Student 幼儿档案
type Student struct {
	baseModel.BaseModel
	KindergartenID string `gorm:"type:uuid;not null;index" json:"kindergartenId"`
	Name           string `gorm:"type:varchar(100);not null" json:"name"`
}

func (Student) TableName() string {
	return "students"
}

// Enrollment 报名记录，缴费单的外键来源
type Enrollment struct {
	baseModel.BaseModel
	StudentID      string `gorm:"type:uuid;not null;index" json:"studentId"`
	KindergartenID string `gorm:"type:uuid;not null;index" json:"kindergartenId"`
	ClassName      string `gorm:"type:varchar(50)" json:"className"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
