package model

import "time"

// Классы устройств для кликов.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// Click один переход по короткой ссылке.
type Click struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"url_id"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Device    string    `json:"device"`
	CreatedAt time.Time `json:"created_at"`
}
