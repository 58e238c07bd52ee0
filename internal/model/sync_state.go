package model

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState 每店铺一行的同步水位
// Watermark 是上一次成功同步的起始时间（unix 秒），增量同步以它作为 update_time_from
type SyncState struct {
	BaseModel
	ShopID int64 `gorm:"uniqueIndex;not null"`

	Watermark     int64      `gorm:"default:0"`
	LastRunID     string     `gorm:"size:64"`
	LastRunAt     *time.Time `gorm:""`
	LastSuccessAt *time.Time `gorm:""`
	LastError     string     `gorm:"size:1024"`

	// 最近一轮的统计快照: {"inserted":3,"updated":5,...}
	Stats datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
