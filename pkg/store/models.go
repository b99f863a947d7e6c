package store

import (
	"time"

	"gorm.io/datatypes"
)

// WorkspaceBlobModel stores one named state blob of a workspace.
type WorkspaceBlobModel struct {
	WorkspaceID string         `gorm:"primaryKey"`
	Name        string         `gorm:"primaryKey"`
	Data        datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (WorkspaceBlobModel) TableName() string {
	return "workspace_blobs"
}
