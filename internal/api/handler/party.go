package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/convoy/internal/api/middleware"
	"github.com/mcoot/convoy/internal/api/request"
	"github.com/mcoot/convoy/internal/api/response"
	"github.com/mcoot/convoy/internal/model"
	"github.com/mcoot/convoy/internal/services/party"
)

// PartyHandler handles party endpoints
type PartyHandler struct {
	parties party.ServiceInterface
}

// NewPartyHandler creates a new party handler
func NewPartyHandler(parties party.ServiceInterface) *PartyHandler {
	return &PartyHandler{
		parties: parties,
	}
}

// Create handles POST /api/v1/parties
func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.CreatePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	result, err := h.parties.CreateParty(r.Context(), user.ID, req.Name, req.MaxMembers)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.CreatePartyFromResult(result))
}

// Join handles POST /api/v1/parties/{party_id}/join
func (h *PartyHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	var req request.JoinPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	err := h.parties.JoinParty(r.Context(), user.ID, partyID(r), model.InviteCode(req.InviteCode))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Success{Success: true})
}

// Leave handles POST /api/v1/parties/{party_id}/leave
func (h *PartyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	if err := h.parties.LeaveParty(r.Context(), user.ID, partyID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Success{Success: true})
}

// Disband handles POST /api/v1/parties/{party_id}/disband
func (h *PartyHandler) Disband(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	if err := h.parties.DisbandParty(r.Context(), user.ID, partyID(r)); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Success{Success: true})
}

// Get handles GET /api/v1/parties/{party_id}
func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	p, err := h.parties.GetPartyDetails(r.Context(), user.ID, partyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PartyResponse{Party: response.PartyFromModel(p)})
}

// Members handles GET /api/v1/parties/{party_id}/members
func (h *PartyHandler) Members(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	members, err := h.parties.GetMembers(r.Context(), user.ID, partyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MembersResponse{Members: response.MembersFromModel(members)})
}

func partyID(r *http.Request) model.PartyID {
	return model.PartyID(mux.Vars(r)["party_id"])
}
