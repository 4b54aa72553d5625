package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivePairModel is one persisted pair. Orders keeps the full leg records,
// recovery executions included, as written at settlement time.
type ActivePairModel struct {
	ID         string         `gorm:"column:id;primaryKey"`
	Symbol     string         `gorm:"column:symbol;index"`
	BuyBroker  string         `gorm:"column:buy_broker"`
	SellBroker string         `gorm:"column:sell_broker"`
	Size       float64        `gorm:"column:size"`
	OrdersJSON datatypes.JSON `gorm:"column:orders_json;type:TEXT"`
	CreatedAt  time.Time      `gorm:"column:created_at;index"`
}

func (ActivePairModel) TableName() string { return "active_pairs" }
