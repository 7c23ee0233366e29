package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
)

// AssignmentRequest is the body of create and update calls
type AssignmentRequest struct {
	Purpose        string  `json:"purpose" validate:"max=1000,no_control"`
	Destination    string  `json:"destination" validate:"max=255,no_control"`
	StartDate      string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ParticipantIDs []int64 `json:"participant_ids" validate:"dive,gt=0"`
}

func (r AssignmentRequest) input() service.AssignmentInput {
	start, _ := parseDate(r.StartDate)
	end, _ := parseDate(r.EndDate)
	return service.AssignmentInput{
		Purpose:        r.Purpose,
		Destination:    r.Destination,
		StartDate:      start,
		EndDate:        end,
		ParticipantIDs: r.ParticipantIDs,
	}
}

// ListAssignmentsRequest represents query parameters for listing assignments
type ListAssignmentsRequest struct {
	Search     string `form:"search" json:"search" validate:"max=255"`
	StartDate  string `form:"start_date" json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	HasReports string `form:"has_reports" json:"has_reports" validate:"omitempty,oneof=true false"`
	Limit      int    `form:"limit" json:"limit"`
	Offset     int    `form:"offset" json:"offset"`
}

// BulkDeleteRequest names the assignments to delete
type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

// DocumentationForm carries the non-file fields of a documentation upload
type DocumentationForm struct {
	Latitude  *float64 `form:"latitude" json:"latitude" validate:"required,latitude"`
	Longitude *float64 `form:"longitude" json:"longitude" validate:"required,longitude"`
	Address   string   `form:"address" json:"address" validate:"max=500,no_control"`
	Notes     string   `form:"notes" json:"notes" validate:"max=2000,no_control"`
}

// ListAssignments handles GET /api/assignments
func (h *Handlers) ListAssignments(c *gin.Context) {
	var req ListAssignmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid query parameters")
		return
	}
	if !h.check(c, req) {
		return
	}

	q := service.AssignmentQuery{Search: req.Search}
	q.Limit, q.Offset = pageBounds(req.Limit, req.Offset)
	if req.StartDate != "" {
		day, _ := parseDate(req.StartDate)
		q.StartDate = &day
	}
	if req.HasReports != "" {
		has := req.HasReports == "true"
		q.HasReports = &has
	}

	items, total, err := h.services.Assignments.List(c.Request.Context(), actorFrom(c), q)
	if err != nil {
		h.respondError(c, "assignments.list", err)
		return
	}
	if items == nil {
		items = []*entity.Assignment{}
	}
	respondOK(c, http.StatusOK, ListResponse{Items: items, Total: total})
}

// CreateAssignment handles POST /api/assignments
func (h *Handlers) CreateAssignment(c *gin.Context) {
	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.services.Assignments.Create(c.Request.Context(), actorFrom(c), req.input())
	if err != nil {
		h.respondError(c, "assignments.create", err)
		return
	}
	respondOK(c, http.StatusCreated, a)
}

// GetAssignment handles GET /api/assignments/:id
func (h *Handlers) GetAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.services.Assignments.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "assignments.get", err)
		return
	}
	respondOK(c, http.StatusOK, a)
}

// UpdateAssignment handles PUT /api/assignments/:id
func (h *Handlers) UpdateAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.services.Assignments.Update(c.Request.Context(), actorFrom(c), id, req.input())
	if err != nil {
		h.respondError(c, "assignments.update", err)
		return
	}
	respondOK(c, http.StatusOK, a)
}

// DeleteAssignment handles DELETE /api/assignments/:id
func (h *Handlers) DeleteAssignment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Assignments.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "assignments.delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}

// BulkDeleteAssignments handles POST /api/assignments/bulk-delete
func (h *Handlers) BulkDeleteAssignments(c *gin.Context) {
	var req BulkDeleteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	n, err := h.services.Assignments.BulkDelete(c.Request.Context(), actorFrom(c), req.IDs)
	if err != nil {
		h.respondError(c, "assignments.bulk_delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": n})
}

// ListDocumentation handles GET /api/assignments/:id/documentation
func (h *Handlers) ListDocumentation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	docs, err := h.services.Documentation.List(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, "documentation.list", err)
		return
	}
	if docs == nil {
		docs = []*entity.Documentation{}
	}
	respondOK(c, http.StatusOK, docs)
}

// AddDocumentation handles POST /api/assignments/:id/documentation
func (h *Handlers) AddDocumentation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var form DocumentationForm
	if err := c.ShouldBind(&form); err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid form data")
		return
	}
	if !h.check(c, form) {
		return
	}
	photo, err := readUpload(c, "photo")
	if err != nil {
		h.respondError(c, "documentation.read_upload", err)
		return
	}

	doc, err := h.services.Documentation.Add(c.Request.Context(), actorFrom(c), id, service.DocumentationInput{
		Photo:     photo,
		Latitude:  *form.Latitude,
		Longitude: *form.Longitude,
		Address:   form.Address,
		Notes:     form.Notes,
	})
	if err != nil {
		h.respondError(c, "documentation.add", err)
		return
	}
	respondOK(c, http.StatusCreated, doc)
}

// DeleteDocumentation handles DELETE /api/documentation/:id
func (h *Handlers) DeleteDocumentation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Documentation.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "documentation.delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}

// pageBounds applies the default page size of 20 and the cap of 100.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
