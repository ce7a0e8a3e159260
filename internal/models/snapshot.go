package models

import "time"

// DealSnapshot represents a daily snapshot of a saved deal's state
type DealSnapshot struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DealID     string    `gorm:"type:varchar(32);not null;index:idx_deal_date" json:"deal_id"`
	SnapshotAt time.Time `gorm:"type:date;not null;index:idx_deal_date,priority:2;index:idx_snapshot_date" json:"snapshot_at"`

	// Deal state at snapshot time
	Price           float64         `gorm:"type:decimal(12,2)" json:"price"`
	EstimatedValue  *float64        `gorm:"type:decimal(12,2)" json:"estimated_value,omitempty"`
	ValuationSource ValuationSource `gorm:"type:varchar(20)" json:"valuation_source,omitempty"`
	DealScore       int             `gorm:"type:int" json:"deal_score"`
	DaysOnMarket    int             `gorm:"type:int" json:"days_on_market"`
	Status          string          `gorm:"type:varchar(20);not null" json:"status"`

	// Change detection
	HasChanged bool   `gorm:"type:boolean;default:false" json:"has_changed"`
	ChangeNote string `gorm:"type:text" json:"change_note,omitempty"`

	CreatedAt time.Time `gorm:"type:datetime;not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (DealSnapshot) TableName() string {
	return "deal_snapshots"
}

// DealChange represents detected changes between snapshots
type DealChange struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DealID          string    `gorm:"type:varchar(32);not null;index" json:"deal_id"`
	SnapshotID      uint      `gorm:"type:bigint;not null" json:"snapshot_id"`
	ChangeType      string    `gorm:"type:varchar(50);not null" json:"change_type"`
	OldValue        string    `gorm:"type:text" json:"old_value,omitempty"`
	NewValue        string    `gorm:"type:text" json:"new_value,omitempty"`
	ChangeMagnitude *float64  `gorm:"type:decimal(12,2)" json:"change_magnitude,omitempty"`
	DetectedAt      time.Time `gorm:"type:datetime;not null;autoCreateTime;index" json:"detected_at"`
}

// TableName specifies the table name
func (DealChange) TableName() string {
	return "deal_changes"
}

// ChangeType constants
const (
	ChangeTypePrice  = "price_changed"
	ChangeTypeValue  = "value_changed"
	ChangeTypeScore  = "score_changed"
	ChangeTypeStatus = "status_changed"
	ChangeTypeNew    = "new_deal"
)
