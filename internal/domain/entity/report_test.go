package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func validReport(detail ExpenseDetail) *Report {
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	return &Report{
		TravelType:        detail.TravelType(),
		TravelOrderNumber: "ST-001/2026",
		DestinationCity:   "Makassar",
		DepartureDate:     day,
		ReturnDate:        day.AddDate(0, 0, 2),
		ActualDuration:    3,
		TravelPurpose:     "Monitoring",
		Detail:            detail,
	}
}

func TestOutCityReport_AllowanceExclusivity(t *testing.T) {
	tests := []struct {
		name      string
		fullboard *int64
		custom    *int64
		wantErr   bool
	}{
		{"fullboard only", int64Ptr(3), nil, false},
		{"custom only", nil, int64Ptr(450000), false},
		{"both set", int64Ptr(3), int64Ptr(450000), true},
		{"neither set", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &OutCityReport{FullboardPriceID: tt.fullboard, CustomDailyAllowance: tt.custom}
			err := d.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "fullboard_price_id")
		})
	}
}

func TestReport_ValidateDetailMatchesTravelType(t *testing.T) {
	r := validReport(&InCityReport{})
	require.NoError(t, r.Validate())

	r.TravelType = TravelTypeOutCountry
	var verr *ValidationError
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Contains(t, verr.Fields, "detail")

	r = validReport(&InCityReport{})
	r.Detail = nil
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Equal(t, "expense detail is required", verr.Fields["detail"])
}

func TestReport_ValidateFieldScopedMessages(t *testing.T) {
	r := validReport(&OutCityReport{})
	r.ReturnDate = r.DepartureDate.AddDate(0, 0, -1)
	r.ActualDuration = 0

	var verr *ValidationError
	require.ErrorAs(t, r.Validate(), &verr)
	assert.Contains(t, verr.Fields, "return_date")
	assert.Contains(t, verr.Fields, "actual_duration")
	assert.Contains(t, verr.Fields, "detail.fullboard_price_id")
}

func TestReport_LatestTouch(t *testing.T) {
	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r := validReport(&OutCountryReport{UpdatedAt: at.Add(time.Hour)})
	r.UpdatedAt = at
	assert.Equal(t, at.Add(time.Hour), r.LatestTouch())

	r.Narrative = &TravelReport{UpdatedAt: at.Add(2 * time.Hour)}
	assert.Equal(t, at.Add(2*time.Hour), r.LatestTouch())
}

func TestExpenseDetail_ReceiptSlots(t *testing.T) {
	d := &OutCountryReport{}
	slot, ok := d.ReceiptSlot("visa_receipt")
	require.True(t, ok)
	*slot = "receipts/7/visa.pdf"
	assert.Equal(t, "receipts/7/visa.pdf", d.VisaReceipt)

	_, ok = d.ReceiptSlot("representation_receipt")
	assert.False(t, ok)
}

func TestOutCityReport_Total(t *testing.T) {
	d := &OutCityReport{TransportCost: 100, AccommodationCost: 200, CustomDailyAllowance: int64Ptr(50), OtherCost: 5}
	assert.Equal(t, int64(355), d.Total())

	d = &OutCityReport{FullboardPriceID: int64Ptr(1), FullboardAmount: 70}
	assert.Equal(t, int64(70), d.Total())
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		size       int64
		imagesOnly bool
		wantErr    bool
	}{
		{"pdf receipt", "ticket.PDF", 1024, false, false},
		{"png photo", "site.png", MaxUploadBytes, true, false},
		{"pdf rejected for photos", "site.pdf", 1024, true, true},
		{"executable", "run.exe", 10, false, true},
		{"too large", "scan.jpg", MaxUploadBytes + 1, false, true},
		{"empty", "", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload("receipt", tt.filename, tt.size, tt.imagesOnly)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "receipt")
		})
	}
}
