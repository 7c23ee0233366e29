package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-report/internal/application/service"
	"github.com/garyjia/travel-report/internal/domain/entity"
)

// EmployeeRequest is the body of POST /api/employees
type EmployeeRequest struct {
	Name       string   `json:"name" validate:"required,max=255,no_control"`
	Email      string   `json:"email" validate:"omitempty,email,max=255"`
	NIP        string   `json:"nip" validate:"omitempty,nip"`
	Position   string   `json:"position" validate:"max=255,no_control"`
	WorkUnitID *int64   `json:"work_unit_id" validate:"omitempty,gt=0"`
	Roles      []string `json:"roles" validate:"dive,oneof=superadmin admin leader verificator employee"`
}

// RolesRequest is the body of PUT /api/employees/:id/roles
type RolesRequest struct {
	Roles      []string `json:"roles" validate:"dive,oneof=superadmin admin leader verificator employee"`
	WorkUnitID *int64   `json:"work_unit_id" validate:"omitempty,gt=0"`
}

// WorkUnitRequest is the body of POST /api/work-units
type WorkUnitRequest struct {
	Name        string `json:"name" validate:"required,max=255,no_control"`
	Code        string `json:"code" validate:"required,max=50,no_control"`
	Description string `json:"description" validate:"max=1000,no_control"`
}

func toRoles(names []string) []entity.Role {
	roles := make([]entity.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, entity.Role(n))
	}
	return roles
}

// CreateEmployee handles POST /api/employees
func (h *Handlers) CreateEmployee(c *gin.Context) {
	var req EmployeeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.services.Leadership.CreateEmployee(c.Request.Context(), actorFrom(c), service.EmployeeInput{
		Name:       req.Name,
		Email:      req.Email,
		NIP:        req.NIP,
		Position:   req.Position,
		WorkUnitID: req.WorkUnitID,
		Roles:      toRoles(req.Roles),
	})
	if err != nil {
		h.respondError(c, "employees.create", err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// SetEmployeeRoles handles PUT /api/employees/:id/roles
func (h *Handlers) SetEmployeeRoles(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RolesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.services.Leadership.SetEmployeeRoles(c.Request.Context(), actorFrom(c), id, toRoles(req.Roles), req.WorkUnitID)
	if err != nil {
		h.respondError(c, "employees.set_roles", err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// DeleteEmployee handles DELETE /api/employees/:id
func (h *Handlers) DeleteEmployee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.Leadership.DeleteEmployee(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "employees.delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}

// CreateWorkUnit handles POST /api/work-units
func (h *Handlers) CreateWorkUnit(c *gin.Context) {
	var req WorkUnitRequest
	if !h.bindJSON(c, &req) {
		return
	}
	unit, err := h.services.WorkUnits.Create(c.Request.Context(), actorFrom(c), service.WorkUnitInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, "work_units.create", err)
		return
	}
	respondOK(c, http.StatusCreated, unit)
}

// DeleteWorkUnit handles DELETE /api/work-units/:id
func (h *Handlers) DeleteWorkUnit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.services.WorkUnits.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, "work_units.delete", err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": id})
}
