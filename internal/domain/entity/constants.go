package entity

// Report status values
const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusApproved  ReportStatus = "approved"
	ReportStatusRejected  ReportStatus = "rejected"
)

// Travel types
const (
	TravelTypeInCity     TravelType = "in_city"
	TravelTypeOutCity    TravelType = "out_city"
	TravelTypeOutCountry TravelType = "out_country"
)

// Reviewer types, in chain order
const (
	ReviewerCommitmentOfficer ReviewerType = "commitment_officer"
	ReviewerSectionHead       ReviewerType = "section_head"
)

// Review verdicts
const (
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Upload limits for receipts, report files and documentation photos
const (
	MaxUploadBytes = 2 * 1024 * 1024
)

// AllowedUploadExtensions lists accepted file extensions (lower case, with dot).
var AllowedUploadExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".pdf":  true,
}

// RecentActivityLimit is the number of rows returned in dashboard activity lists.
const RecentActivityLimit = 5
