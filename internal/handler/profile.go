package handler

import (
	"encoding/json"
	"net/http"

	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/service"
)

type ProfileHandler struct {
	profile *service.ProfileService
}

func NewProfileHandler(profile *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profile: profile}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.profile.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "profile get", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	user, err := h.profile.Update(r.Context(), userID, upd)
	if err != nil {
		writeServiceError(w, "profile update", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
