package entity

import "time"

// ExpenseDetail is the itemized claim of a report. Exactly one concrete
// shape exists per report, selected by its travel type.
type ExpenseDetail interface {
	TravelType() TravelType
	Validate() error
	// ReceiptSlot returns a pointer to the named receipt field.
	ReceiptSlot(name string) (*string, bool)
	Total() int64
	Touched() time.Time
	SetReportID(id int64)
	SetTimestamps(createdAt, updatedAt time.Time)
}

// InCityReport holds expenses for travel within the home city.
type InCityReport struct {
	ID               int64     `json:"id"`
	ReportID         int64     `json:"report_id"`
	TransportCost    int64     `json:"transport_cost"`
	TransportReceipt string    `json:"transport_receipt,omitempty"`
	DailyAllowance   int64     `json:"daily_allowance"`
	OtherCost        int64     `json:"other_cost"`
	OtherReceipt     string    `json:"other_receipt,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *InCityReport) TravelType() TravelType { return TravelTypeInCity }
func (d *InCityReport) Touched() time.Time     { return d.UpdatedAt }
func (d *InCityReport) SetReportID(id int64)   { d.ReportID = id }

func (d *InCityReport) SetTimestamps(createdAt, updatedAt time.Time) {
	d.CreatedAt, d.UpdatedAt = createdAt, updatedAt
}

func (d *InCityReport) Total() int64 {
	return d.TransportCost + d.DailyAllowance + d.OtherCost
}

func (d *InCityReport) ReceiptSlot(name string) (*string, bool) {
	switch name {
	case "transport_receipt":
		return &d.TransportReceipt, true
	case "other_receipt":
		return &d.OtherReceipt, true
	}
	return nil, false
}

func (d *InCityReport) Validate() error {
	verr := NewValidationError()
	nonNegative(verr, "transport_cost", d.TransportCost)
	nonNegative(verr, "daily_allowance", d.DailyAllowance)
	nonNegative(verr, "other_cost", d.OtherCost)
	return verr.OrNil()
}

// OutCityReport holds expenses for domestic travel outside the home city.
// Exactly one of FullboardPriceID and CustomDailyAllowance is set.
type OutCityReport struct {
	ID                    int64     `json:"id"`
	ReportID              int64     `json:"report_id"`
	TransportCost         int64     `json:"transport_cost"`
	TransportReceipt      string    `json:"transport_receipt,omitempty"`
	AccommodationCost     int64     `json:"accommodation_cost"`
	AccommodationReceipt  string    `json:"accommodation_receipt,omitempty"`
	FullboardPriceID      *int64    `json:"fullboard_price_id,omitempty"`
	CustomDailyAllowance  *int64    `json:"custom_daily_allowance,omitempty"`
	RepresentationCost    int64     `json:"representation_cost"`
	RepresentationReceipt string    `json:"representation_receipt,omitempty"`
	OtherCost             int64     `json:"other_cost"`
	OtherReceipt          string    `json:"other_receipt,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	// FullboardAmount is the resolved rate when FullboardPriceID is set.
	FullboardAmount int64 `json:"fullboard_amount,omitempty"`
}

func (d *OutCityReport) TravelType() TravelType { return TravelTypeOutCity }
func (d *OutCityReport) Touched() time.Time     { return d.UpdatedAt }
func (d *OutCityReport) SetReportID(id int64)   { d.ReportID = id }

func (d *OutCityReport) SetTimestamps(createdAt, updatedAt time.Time) {
	d.CreatedAt, d.UpdatedAt = createdAt, updatedAt
}

// DailyAllowance returns whichever allowance source is set.
func (d *OutCityReport) DailyAllowance() int64 {
	if d.CustomDailyAllowance != nil {
		return *d.CustomDailyAllowance
	}
	return d.FullboardAmount
}

func (d *OutCityReport) Total() int64 {
	return d.TransportCost + d.AccommodationCost + d.DailyAllowance() + d.RepresentationCost + d.OtherCost
}

func (d *OutCityReport) ReceiptSlot(name string) (*string, bool) {
	switch name {
	case "transport_receipt":
		return &d.TransportReceipt, true
	case "accommodation_receipt":
		return &d.AccommodationReceipt, true
	case "representation_receipt":
		return &d.RepresentationReceipt, true
	case "other_receipt":
		return &d.OtherReceipt, true
	}
	return nil, false
}

func (d *OutCityReport) Validate() error {
	verr := NewValidationError()
	nonNegative(verr, "transport_cost", d.TransportCost)
	nonNegative(verr, "accommodation_cost", d.AccommodationCost)
	nonNegative(verr, "representation_cost", d.RepresentationCost)
	nonNegative(verr, "other_cost", d.OtherCost)

	switch {
	case d.FullboardPriceID != nil && d.CustomDailyAllowance != nil:
		verr.Add("fullboard_price_id", "choose either a fullboard price or a custom daily allowance, not both")
	case d.FullboardPriceID == nil && d.CustomDailyAllowance == nil:
		verr.Add("fullboard_price_id", "a fullboard price or a custom daily allowance is required")
	case d.CustomDailyAllowance != nil:
		nonNegative(verr, "custom_daily_allowance", *d.CustomDailyAllowance)
	}
	return verr.OrNil()
}

// OutCountryReport holds expenses for travel abroad.
type OutCountryReport struct {
	ID                   int64     `json:"id"`
	ReportID             int64     `json:"report_id"`
	AirfareCost          int64     `json:"airfare_cost"`
	AirfareReceipt       string    `json:"airfare_receipt,omitempty"`
	AccommodationCost    int64     `json:"accommodation_cost"`
	AccommodationReceipt string    `json:"accommodation_receipt,omitempty"`
	DailyAllowance       int64     `json:"daily_allowance"`
	VisaCost             int64     `json:"visa_cost"`
	VisaReceipt          string    `json:"visa_receipt,omitempty"`
	OtherCost            int64     `json:"other_cost"`
	OtherReceipt         string    `json:"other_receipt,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (d *OutCountryReport) TravelType() TravelType { return TravelTypeOutCountry }
func (d *OutCountryReport) Touched() time.Time     { return d.UpdatedAt }
func (d *OutCountryReport) SetReportID(id int64)   { d.ReportID = id }

func (d *OutCountryReport) SetTimestamps(createdAt, updatedAt time.Time) {
	d.CreatedAt, d.UpdatedAt = createdAt, updatedAt
}

func (d *OutCountryReport) Total() int64 {
	return d.AirfareCost + d.AccommodationCost + d.DailyAllowance + d.VisaCost + d.OtherCost
}

func (d *OutCountryReport) ReceiptSlot(name string) (*string, bool) {
	switch name {
	case "airfare_receipt":
		return &d.AirfareReceipt, true
	case "accommodation_receipt":
		return &d.AccommodationReceipt, true
	case "visa_receipt":
		return &d.VisaReceipt, true
	case "other_receipt":
		return &d.OtherReceipt, true
	}
	return nil, false
}

func (d *OutCountryReport) Validate() error {
	verr := NewValidationError()
	nonNegative(verr, "airfare_cost", d.AirfareCost)
	nonNegative(verr, "accommodation_cost", d.AccommodationCost)
	nonNegative(verr, "daily_allowance", d.DailyAllowance)
	nonNegative(verr, "visa_cost", d.VisaCost)
	nonNegative(verr, "other_cost", d.OtherCost)
	return verr.OrNil()
}

func nonNegative(verr *ValidationError, field string, v int64) {
	if v < 0 {
		verr.Add(field, "amount must not be negative")
	}
}
