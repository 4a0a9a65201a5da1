package model

// Location categories.
const (
	CategoryAcademic       = "academic"
	CategoryAdministration = "administration"
	CategoryResearch       = "research"
	CategoryAccommodation  = "accommodation"
	CategoryDining         = "dining"
	CategoryRecreation     = "recreation"
	CategoryEvents         = "events"
)

// Categories lists every accepted category.
var Categories = []string{
	CategoryAcademic, CategoryAdministration, CategoryResearch,
	CategoryAccommodation, CategoryDining, CategoryRecreation, CategoryEvents,
}

// Location maps the locations table.
type Location struct {
	LocationID  string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string      `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string      `gorm:"type:varchar(1000);not null"                    json:"description"`
	Department  string      `gorm:"type:varchar(100);not null"                     json:"department"`
	Category    string      `gorm:"type:varchar(20);not null;default:'academic'"   json:"category"`
	Latitude    float64     `gorm:"not null"                                       json:"latitude"`
	Longitude   float64     `gorm:"not null"                                       json:"longitude"`
	Images      StringArray `gorm:"type:text[];not null;default:'{}'"              json:"images"`
	Audio       *string     `gorm:"type:text"                                      json:"audio,omitempty"`
	Video       *string     `gorm:"type:text"                                      json:"video,omitempty"`
	View360     *string     `gorm:"column:view360;type:text"                       json:"view360,omitempty"`
	IsActive    bool        `gorm:"not null"                                       json:"isActive"`
	BaseModel

	Creator *User `gorm:"foreignKey:CreatedBy;references:UserID" json:"createdBy,omitempty"`
}

// TableName table name.
func (Location) TableName() string { return "locations" }
