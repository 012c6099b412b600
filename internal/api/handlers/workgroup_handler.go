package handlers

import (
	"net/http"

	"dzemat/internal/engine/tasks"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
)

type WorkGroupHandler struct {
	service *workgroups.Service
	tasks   *tasks.Engine
}

func NewWorkGroupHandler(service *workgroups.Service, taskEngine *tasks.Engine) *WorkGroupHandler {
	return &WorkGroupHandler{service: service, tasks: taskEngine}
}

func (h *WorkGroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context(), principal(r))
	respond(w, http.StatusOK, groups, err)
}

func (h *WorkGroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.Get(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, group, err)
}

func (h *WorkGroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in workgroups.GroupInput
	if !decode(w, r, &in) {
		return
	}
	group, err := h.service.Create(r.Context(), principal(r), in)
	respond(w, http.StatusCreated, group, err)
}

func (h *WorkGroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in workgroups.GroupInput
	if !decode(w, r, &in) {
		return
	}
	group, err := h.service.Update(r.Context(), principal(r), param(r, "id"), in)
	respond(w, http.StatusOK, group, err)
}

func (h *WorkGroupHandler) Archive(w http.ResponseWriter, r *http.Request) {
	group, err := h.service.ToggleArchive(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, group, err)
}

func (h *WorkGroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, map[string]bool{"success": true}, err)
}

func (h *WorkGroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), principal(r), param(r, "id"), false)
	respond(w, http.StatusOK, members, err)
}

func (h *WorkGroupHandler) Moderators(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), principal(r), param(r, "id"), true)
	respond(w, http.StatusOK, members, err)
}

func (h *WorkGroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		apperr.Write(w, apperr.Invalid("userId is required", map[string]string{"userId": "is required"}))
		return
	}
	member, err := h.service.AddMember(r.Context(), principal(r), param(r, "id"), req.UserID)
	respond(w, http.StatusOK, member, err)
}

func (h *WorkGroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveMember(r.Context(), principal(r), param(r, "id"), param(r, "userId"))
	respond(w, http.StatusOK, map[string]bool{"success": true}, err)
}

// SetModerator requires a JSON boolean; anything else is rejected.
func (h *WorkGroupHandler) SetModerator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsModerator *bool `json:"isModerator"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.IsModerator == nil {
		apperr.Write(w, apperr.Invalid("isModerator must be a boolean", map[string]string{"isModerator": "must be a boolean"}))
		return
	}
	err := h.service.SetModerator(r.Context(), principal(r), param(r, "id"), param(r, "userId"), *req.IsModerator)
	respond(w, http.StatusOK, map[string]interface{}{"success": true, "isModerator": *req.IsModerator}, err)
}

func (h *WorkGroupHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.tasks.ListByGroup(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, list, err)
}

func (h *WorkGroupHandler) UserGroups(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.service.UserGroups(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, memberships, err)
}

func (h *WorkGroupHandler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListAccessRequests(r.Context(), principal(r))
	respond(w, http.StatusOK, requests, err)
}

func (h *WorkGroupHandler) MyAccessRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.MyAccessRequests(r.Context(), principal(r))
	respond(w, http.StatusOK, requests, err)
}

func (h *WorkGroupHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkGroupID string `json:"workGroupId"`
	}
	if !decode(w, r, &req) {
		return
	}
	request, err := h.service.RequestAccess(r.Context(), principal(r), req.WorkGroupID)
	respond(w, http.StatusCreated, request, err)
}

func (h *WorkGroupHandler) DecideAccessRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status workgroups.RequestStatus `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	request, err := h.service.DecideAccessRequest(r.Context(), principal(r), param(r, "id"), req.Status)
	respond(w, http.StatusOK, request, err)
}
