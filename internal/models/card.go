package models

import "time"

// Card is a shareable contact card. Avatar and VCFPath hold server-relative URL
// paths (e.g. "/static/avatars/x.png") and are empty when no file was uploaded.
type Card struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"-" gorm:"index;type:varchar(36);not null"`
	Name       string    `json:"name" gorm:"type:varchar(100)" validate:"required,max=100"`
	Email      string    `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Birthday   string    `json:"birthday" gorm:"type:varchar(10)" validate:"omitempty,datetime=2006-01-02"`
	Profession string    `json:"profession" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	Avatar     string    `json:"avatar" gorm:"type:varchar(255)"`
	VCFPath    string    `json:"vcf_path" gorm:"type:varchar(255)"`
	LineLink   string    `json:"line_link" gorm:"type:varchar(500)" validate:"omitempty,url"`
	FBLink     string    `json:"fb_link" gorm:"type:varchar(500)" validate:"omitempty,url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
