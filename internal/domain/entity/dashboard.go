package entity

// StatusBuckets counts reports per status within a window.
type StatusBuckets struct {
	Approved  int `json:"approved"`
	Submitted int `json:"submitted"`
	Rejected  int `json:"rejected"`
	Draft     int `json:"draft"`
	Total     int `json:"total"`
}

// CoreStats are visible to every role.
type CoreStats struct {
	TotalAssignments     int `json:"total_assignments"`
	TotalDocumentations  int `json:"total_documentations"`
	AssignmentsThisMonth int `json:"assignments_this_month"`
	ReportsThisMonth     int `json:"reports_this_month"`
	ReportsLastMonth     int `json:"reports_last_month"`
	ReportsApproved      int `json:"reports_approved"`
	ReportsSubmitted     int `json:"reports_submitted"`
	ReportsRejected      int `json:"reports_rejected"`
	ReportsTotal         int `json:"reports_total"`
}

// MonthlyStats is the per-role block: report buckets for assignments
// starting this month plus assignment counts.
type MonthlyStats struct {
	Reports              StatusBuckets `json:"reports"`
	AssignmentsThisMonth int           `json:"assignments_this_month"`
	AssignmentsThisYear  int           `json:"assignments_this_year"`
}

// AdminStats extends the monthly block with master-data counts.
type AdminStats struct {
	MonthlyStats
	WorkUnits       int `json:"work_units"`
	Employees       int `json:"employees"`
	FullboardPrices int `json:"fullboard_prices"`
}

// ReportSummary is a row in the recent-activity list.
type ReportSummary struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	UserName     string       `json:"user_name"`
	AssignmentID int64        `json:"assignment_id"`
	Destination  string       `json:"destination"`
	Status       ReportStatus `json:"status"`
	TravelType   TravelType   `json:"travel_type"`
	CreatedAt    string       `json:"created_at"`
}

// AssignmentSummary is a row in the recent-activity list.
type AssignmentSummary struct {
	ID          int64  `json:"id"`
	Purpose     string `json:"purpose"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	CreatorID   int64  `json:"creator_id"`
	CreatedAt   string `json:"created_at"`
}

// DashboardStats is the aggregate returned for an actor. Role blocks are nil
// when the actor lacks the role. Verificators are served the Team block.
type DashboardStats struct {
	Core              CoreStats           `json:"core"`
	Admin             *AdminStats         `json:"admin,omitempty"`
	Team              *MonthlyStats       `json:"leader,omitempty"`
	Employee          *MonthlyStats       `json:"employee,omitempty"`
	RecentReports     []ReportSummary     `json:"recent_reports"`
	RecentAssignments []AssignmentSummary `json:"recent_assignments"`
}
