package entity

import "time"

// FullboardPrice is the standard daily allowance for a province.
type FullboardPrice struct {
	ID        int64     `json:"id"`
	Province  string    `json:"province"`
	Price     int64     `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransportationType is a mode of travel selectable on a report.
type TransportationType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
