package handlers

import (
	"net/http"

	"dzemat/internal/engine/tasks"
	apperr "dzemat/internal/pkg/errors"
)

type TaskHandler struct {
	engine *tasks.Engine
}

func NewTaskHandler(engine *tasks.Engine) *TaskHandler {
	return &TaskHandler{engine: engine}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in tasks.CreateInput
	if !decode(w, r, &in) {
		return
	}
	task, err := h.engine.Create(r.Context(), principal(r), in)
	respond(w, http.StatusCreated, task, err)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in tasks.UpdateInput
	if !decode(w, r, &in) {
		return
	}
	task, err := h.engine.Update(r.Context(), principal(r), param(r, "id"), in)
	respond(w, http.StatusOK, task, err)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Delete(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, map[string]bool{"success": true}, err)
}

func (h *TaskHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewWorkGroupID string `json:"newWorkGroupId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.NewWorkGroupID == "" {
		apperr.Write(w, apperr.Invalid("newWorkGroupId is required", map[string]string{"newWorkGroupId": "is required"}))
		return
	}
	task, err := h.engine.Move(r.Context(), principal(r), param(r, "id"), req.NewWorkGroupID)
	respond(w, http.StatusOK, task, err)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	switch id := param(r, "id"); id {
	case "dashboard":
		h.Dashboard(w, r)
	case "admin-archive":
		h.AdminArchive(w, r)
	default:
		task, err := h.engine.Get(r.Context(), principal(r), id)
		respond(w, http.StatusOK, task, err)
	}
}

func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Dashboard(r.Context(), principal(r))
	respond(w, http.StatusOK, list, err)
}

func (h *TaskHandler) AdminArchive(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.AdminArchive(r.Context(), principal(r))
	respond(w, http.StatusOK, list, err)
}

func (h *TaskHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.engine.ListComments(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, comments, err)
}

func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	comment, err := h.engine.AddComment(r.Context(), principal(r), param(r, "id"), req.Content)
	respond(w, http.StatusCreated, comment, err)
}

func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.engine.DeleteComment(r.Context(), principal(r), param(r, "id"))
	respond(w, http.StatusOK, map[string]bool{"success": true}, err)
}
