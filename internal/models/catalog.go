package models

type Category struct {
	BaseModel
	Name string `gorm:"uniqueIndex;size:255" json:"name"`
}
