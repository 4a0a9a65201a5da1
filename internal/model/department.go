package model

// Department maps the departments table. Users and locations reference a
// department by its name string, not by id.
type Department struct {
	DepartmentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Description  string  `gorm:"type:varchar(500);not null;default:''"          json:"description"`
	HeadID       *string `gorm:"type:uuid"                                      json:"-"`
	IsActive     bool    `gorm:"not null"                                       json:"isActive"`
	BaseModel

	Head *User `gorm:"foreignKey:HeadID;references:UserID" json:"head,omitempty"`
}

// TableName table name.
func (Department) TableName() string { return "departments" }
