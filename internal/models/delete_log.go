package models

import "time"

// DeleteLog represents a record of physically deleted deals
type DeleteLog struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	DealID    string     `gorm:"type:varchar(32);not null;index" json:"deal_id"`
	Address   string     `gorm:"type:text" json:"address"`
	DealScore int        `gorm:"type:int" json:"deal_score"`
	StaleAt   *time.Time `gorm:"type:datetime" json:"stale_at,omitempty"`
	DeletedAt time.Time  `gorm:"type:datetime;not null;autoCreateTime;index" json:"deleted_at"`
	Reason    string     `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonExpired   = "expired_stale"
	DeleteReasonDuplicate = "duplicate"
	DeleteReasonManual    = "manual_deletion"
	DeleteReasonDataClean = "data_cleanup"
)
