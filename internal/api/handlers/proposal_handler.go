package handlers

import (
	"context"
	"net/http"

	"dzemat/internal/engine/proposals"
)

type ProposalHandler struct {
	engine *proposals.Engine
}

func NewProposalHandler(engine *proposals.Engine) *ProposalHandler {
	return &ProposalHandler{engine: engine}
}

func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	status := proposals.Status(r.URL.Query().Get("status"))
	list, err := h.engine.Viewer(principal(r)).List(r.Context(), status)
	respond(w, http.StatusOK, list, err)
}

func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Viewer(principal(r)).Get(r.Context(), param(r, "id"))
	respond(w, http.StatusOK, p, err)
}

func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in proposals.Input
	if !decode(w, r, &in) {
		return
	}
	p, err := h.engine.Viewer(principal(r)).Create(r.Context(), in)
	respond(w, http.StatusCreated, p, err)
}

func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in proposals.Input
	if !decode(w, r, &in) {
		return
	}
	p, err := h.engine.Viewer(principal(r)).Update(r.Context(), param(r, "id"), in)
	respond(w, http.StatusOK, p, err)
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

func (h *ProposalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*proposals.Reviewer).Approve)
}

func (h *ProposalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, (*proposals.Reviewer).Reject)
}

func (h *ProposalHandler) decide(w http.ResponseWriter, r *http.Request, action func(*proposals.Reviewer, context.Context, string, string) (*proposals.Proposal, error)) {
	reviewer, err := h.engine.Reviewer(principal(r))
	if err != nil {
		respond(w, 0, nil, err)
		return
	}

	var req decisionRequest
	// An empty body is a decision without a comment.
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	p, err := action(reviewer, r.Context(), param(r, "id"), req.Comment)
	respond(w, http.StatusOK, p, err)
}
