package models

import (
	"time"

	"gorm.io/gorm"
)

type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentGraduated StudentStatus = "graduated"
	StudentSuspended StudentStatus = "suspended"
	StudentWithdrawn StudentStatus = "withdrawn"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Student struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"not null;size:100"`
	StudentNo string `json:"studentNo" gorm:"uniqueIndex;not null;size:50"`
	Gender    Gender `json:"gender" gorm:"size:10"`

	BirthDate      *time.Time `json:"birthDate"`
	EnrollmentDate *time.Time `json:"enrollmentDate"`
	ClassID        *uint      `json:"classId" gorm:"index"`

	// Guardian
	ParentName  *string `json:"parentName" gorm:"size:100"`
	ParentPhone *string `json:"parentPhone" gorm:"size:30"`

	Status StudentStatus `json:"status" gorm:"not null;size:20;default:active;index"`
	Remark *string       `json:"remark" gorm:"type:text"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Student) TableName() string {
	return "students"
}

// StudentStats is the count-by-status summary.
type StudentStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Graduated int64 `json:"graduated"`
	Suspended int64 `json:"suspended"`
	Withdrawn int64 `json:"withdrawn"`
}
