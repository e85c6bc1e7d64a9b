package models

import "time"

// StudentStatusInactive marks students excluded from daily updates.
const StudentStatusInactive = "inactive"

// Student is a roster entry owned by a teacher's class.
type Student struct {
	ID               string    `db:"id" json:"id"`
	TeacherID        string    `db:"teacher_id" json:"teacherId"`
	FirstName        string    `db:"first_name" json:"firstName"`
	LastName         string    `db:"last_name" json:"lastName"`
	Gender           string    `db:"gender" json:"gender,omitempty"`
	GradeLevel       string    `db:"grade_level" json:"gradeLevel,omitempty"`
	Status           string    `db:"status" json:"status"`
	StudentEmail     string    `db:"student_email" json:"studentEmail,omitempty"`
	Email            string    `db:"email" json:"email,omitempty"`
	ParentEmail1     string    `db:"parent_email1" json:"parentEmail1,omitempty"`
	ParentEmail2     string    `db:"parent_email2" json:"parentEmail2,omitempty"`
	ParentName1      string    `db:"parent_name1" json:"parentName1,omitempty"`
	ParentName2      string    `db:"parent_name2" json:"parentName2,omitempty"`
	ParentFirstName1 string    `db:"parent_first_name1" json:"parentFirstName1,omitempty"`
	ParentFirstName2 string    `db:"parent_first_name2" json:"parentFirstName2,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// HasParentEmail reports whether at least one parent address is on file.
func (s Student) HasParentEmail() bool {
	return s.ParentEmail1 != "" || s.ParentEmail2 != ""
}
