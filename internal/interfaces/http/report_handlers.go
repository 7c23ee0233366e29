package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportRequest is the body of report update calls. The detail object is
// decoded according to travel_type.
type ReportRequest struct {
	TravelType            string          `json:"travel_type" validate:"omitempty,oneof=in_city out_city out_country"`
	TravelOrderNumber     string          `json:"travel_order_number" validate:"max=100,no_control"`
	DestinationCity       string          `json:"destination_city" validate:"max=255,no_control"`
	DepartureDate         string          `json:"departure_date" validate:"omitempty,datetime=2006-01-02"`
	ReturnDate            string          `json:"return_date" validate:"omitempty,datetime=2006-01-02"`
	ActualDuration        int             `json:"actual_duration"`
	TravelPurpose         string          `json:"travel_purpose" validate:"max=2000,no_control"`
	Detail                json.RawMessage `json:"detail"`
	Narrative             string          `json:"narrative" validate:"max=20000"`
	TransportationTypeIDs []int64         `json:"transportation_type_ids" validate:"dive,gt=0"`
}

// CreateReportRequest adds the assignment a new report belongs to
type CreateReportRequest struct {
	AssignmentID int64 `json:"assignment_id" validate:"required,gt=0"`
	ReportRequest
}

// ListReportsRequest represents query parameters for listing reports
type ListReportsRequest struct {
	Status       string `form:"status" json:"status" validate:"omitempty,oneof=draft submitted approved rejected"`
	TravelType   string `form:"travel_type" json:"travel_type" validate:"omitempty,oneof=in_city out_city out_country"`
	AssignmentID int64  `form:"assignment_id" json:"assignment_id" validate:"gte=0"`
	Limit        int    `form:"limit" json:"limit"`
	Offset       int    `form:"offset" json:"offset"`
}

// ReviewRequest is a reviewer's verdict
type ReviewRequest struct {
	ReviewerType string `json:"reviewer_type" validate:"required,oneof=commitment_officer section_head"`
	Status       string `json:"status" validate:"required,oneof=approved rejected"`
	Notes        string `json:"notes" validate:"max=2000,no_control"`
}

// ReportResponse exposes the expense detail and total next to the report
type ReportResponse struct {
	*entity.Report
	Detail entity.ExpenseDetail `json:"detail"`
	Total  int64                `json:"total"`
}

func toReportResponse(r *entity.Report) ReportResponse {
	resp := ReportResponse{Report: r, Detail: r.Detail}
	if r.Detail != nil {
		resp.Total = r.Detail.Total()
	}
	return resp
}

func (r ReportRequest) input(travelType entity.TravelType) (service.ReportInput, error) {
	departure, _ := parseDate(r.DepartureDate)
	ret, _ := parseDate(r.ReturnDate)
	detail, err := decodeDetail(travelType, r.Detail)
	if err != nil {
		return service.ReportInput{}, err
	}
	return service.ReportInput{
		TravelType:            entity.TravelType(r.TravelType),
		TravelOrderNumber:     r.TravelOrderNumber,
		DestinationCity:       r.DestinationCity,
		DepartureDate:         departure,
		ReturnDate:            ret,
		ActualDuration:        r.ActualDuration,
		TravelPurpose:         r.TravelPurpose,
		Detail:                detail,
		Narrative:             r.Narrative,
		TransportationTypeIDs: r.TransportationTypeIDs,
	}, nil
}

// decodeDetail unmarshals raw into the detail shape of travelType. A
// missing detail or unknown travel type yields nil, which report
// validation rejects with a field message.
func decodeDetail(travelType entity.TravelType, raw json.RawMessage) (entity.ExpenseDetail, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var detail entity.ExpenseDetail
	switch travelType {
	case entity.TravelTypeInCity:
		detail = &entity.InCityReport{}
	case entity.TravelTypeOutCity:
		detail = &entity.OutCityReport{}
	case entity.TravelTypeOutCountry:
		detail = &entity.OutCountryReport{}
	default:
		return nil, nil
	}
	if err := json.Unmarshal(raw, detail); err != nil {
		return nil, entity.FieldError("detail", "detail does not match the travel type")
	}
	return detail, nil
}

// ListReports handles GET /api/reports
func (h *Handlers) ListReports(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	items, total, err := h.services.Reports.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		h.respondError(c, "reports.list", err)
		return
	}
	out := make([]ReportResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toReportResponse(r))
	}
	respondOK(c, http.StatusOK, ListResponse{Items: out, Total: total})
}

// ExportReports handles GET /api/reports/export. Paging parameters are
// ignored; the workbook holds every visible report matching the filters.
func (h *Handlers) ExportReports(c *gin.Context) {
	q, ok := h.reportQuery(c)
	if !ok {
		return
	}
	q.Limit, q.Offset = 0, 0

	data, err := h.services.Reports.Export(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		h.respondError(c, "reports.export", err)
		return
	}
	name := fmt.Sprintf("reports-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handlers) reportQuery(c *gin.Context) (service.ReportQuery, bool) {
	var req ListReportsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid query parameters")
		return service.ReportQuery{}, false
	}
	if !h.check(c, req) {
		return service.ReportQuery{}, false
	}
	q := service.ReportQuery{
		Status:       entity.ReportStatus(req.Status),
		TravelType:   entity.TravelType(req.TravelType),
		AssignmentID: req.AssignmentID,
	}
	q.Limit, q.Offset = pageBounds(req.Limit, req.Offset)
	return q, true
}

// CreateReport handles POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if !h.bindJSON(c, &req) {
		return
	}
	in, err := req.input(entity.TravelType(req.TravelType))
	if err != nil {
		h.respondError(c, "reports.create", err)
		return
	}
	in.AssignmentID = req.AssignmentID

	r, err := h.services.Reports.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.respondError(c, "reports.create", err)
		return
	}
	respondOK(c, http.StatusCreated, toReportResponse(r))
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.services.Reports.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "reports.get", err)
		return
	}
	respondOK(c, http.StatusOK, view)
}

// UpdateReport handles PUT /api/reports/:id. The stored travel type picks
// the detail shape; sending a different one is rejected by the service.
func (h *Handlers) UpdateReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReportRequest
	if !h.bindJSON(c, &req) {
		return
	}

	current, err := h.services.Reports.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "reports.update", err)
		return
	}
	in, err := req.input(current.TravelType)
	if err != nil {
		h.respondError(c, "reports.update", err)
		return
	}

	r, err := h.services.Reports.Update(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		h.respondError(c, "reports.update", err)
		return
	}
	respondOK(c, http.StatusOK, toReportResponse(r))
}

// DeleteReport handles DELETE /api/reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Reports.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "reports.delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}

// SubmitReport handles POST /api/reports/:id/submit
func (h *Handlers) SubmitReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := h.services.Reports.Submit(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "reports.submit", err)
		return
	}
	respondOK(c, http.StatusOK, toReportResponse(r))
}

// AttachReportFile handles POST /api/reports/:id/files/:slot
func (h *Handlers) AttachReportFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slot := c.Param("slot")
	upload, err := readUpload(c, "file")
	if err != nil {
		h.respondError(c, "reports.read_upload", err)
		return
	}

	path, err := h.services.Reports.AttachFile(c.Request.Context(), actorFrom(c), id, slot, upload)
	if err != nil {
		h.respondError(c, "reports.attach_file", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"slot": slot,
		"path": path,
		"url":  h.deps.Files.URL(c.Request.Context(), path),
	})
}

// ListReviews handles GET /api/reports/:id/reviews
func (h *Handlers) ListReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.services.Reviews.ListReviews(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "reviews.list", err)
		return
	}
	if reviews == nil {
		reviews = []*entity.Review{}
	}
	respondOK(c, http.StatusOK, reviews)
}

// SubmitReview handles POST /api/reports/:id/reviews
func (h *Handlers) SubmitReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	review, err := h.services.Reviews.SubmitReview(c.Request.Context(), actorFrom(c), id, service.ReviewInput{
		ReviewerType: entity.ReviewerType(req.ReviewerType),
		Status:       entity.ReviewStatus(req.Status),
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, "reviews.submit", err)
		return
	}
	respondOK(c, http.StatusCreated, review)
}

// RecomputeStatuses handles POST /api/reports/recompute-statuses
func (h *Handlers) RecomputeStatuses(c *gin.Context) {
	result, err := h.services.Reviews.UpdateAllReportStatuses(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, "reports.recompute_statuses", err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
