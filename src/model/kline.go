package model

import (
	"futuresexecutor/src/utils"
	"time"

	"github.com/shopspring/decimal"
)

// KlineBase is an interval-agnostic bar as returned by the market data feed.
type KlineBase struct {
	ID       uint            `json:"id"`
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	Symbol   string          `json:"symbol"`
}

func (k *KlineBase) ToKline1h() *Kline1h {
	return &Kline1h{
		ID:       k.ID,
		OpenTime: utils.ResetTime(k.OpenTime, "hour"),
		Open:     k.Open,
		High:     k.High,
		Low:      k.Low,
		Close:    k.Close,
		Volume:   k.Volume,
		Symbol:   k.Symbol,
	}
}

func (k *KlineBase) ToKline1m() *Kline1m {
	return &Kline1m{
		ID:       k.ID,
		OpenTime: utils.ResetTime(k.OpenTime, "minute"),
		Open:     k.Open,
		High:     k.High,
		Low:      k.Low,
		Close:    k.Close,
		Volume:   k.Volume,
		Symbol:   k.Symbol,
	}
}

type Kline1m struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"    gorm:"type:varchar(50);not null;uniqueIndex:ux_klines_1m_symbol_open_time,priority:1"`
	OpenTime time.Time       `json:"open_time" gorm:"not null;uniqueIndex:ux_klines_1m_symbol_open_time,priority:2;index:idx_klines_1m_open_time"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (Kline1m) TableName() string {
	return "klines_1m"
}

type Kline1h struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"    gorm:"type:varchar(50);not null;uniqueIndex:ux_klines_1h_symbol_open_time,priority:1"`
	OpenTime time.Time       `json:"open_time" gorm:"not null;uniqueIndex:ux_klines_1h_symbol_open_time,priority:2;index:idx_klines_1h_open_time"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (Kline1h) TableName() string {
	return "klines_1h"
}
