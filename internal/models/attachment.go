package models

import "time"

type Attachment struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	TaskID     uint64    `gorm:"not null;index" json:"task_id"`
	UploadedBy uint64    `gorm:"not null" json:"uploaded_by"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath   string    `gorm:"type:varchar(500);not null" json:"file_path"`
	FileType   string    `gorm:"type:varchar(100)" json:"file_type"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	// Relations
	Task     Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Uploader User `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
}
