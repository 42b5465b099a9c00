package mapdata

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mapeditor/mapeditor/internal/asset"
	"github.com/mapeditor/mapeditor/internal/document"
)

const maxBodySize = 12 << 20 // inline images can be large

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the REST routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/organizations", h.ListOrganizations).Methods("GET")
	r.HandleFunc("/organizations", h.CreateOrganization).Methods("POST")
	r.HandleFunc("/organizations/{id}", h.GetOrganization).Methods("GET")
	r.HandleFunc("/organizations/{id}", h.UpdateOrganization).Methods("PUT")
	r.HandleFunc("/organizations/{id}", h.DeleteOrganization).Methods("DELETE")

	r.HandleFunc("/popup-types", h.ListPopupTypes).Methods("GET")

	r.HandleFunc("/popups", h.ListPopups).Methods("GET")
	r.HandleFunc("/popups", h.CreatePopup).Methods("POST")
	r.HandleFunc("/popups/{id}", h.DeletePopup).Methods("DELETE")
	r.HandleFunc("/popups/{id}/move", h.MovePopup).Methods("POST")

	r.HandleFunc("/polygons", h.ListPolygons).Methods("GET")
	r.HandleFunc("/polygons", h.CreatePolygon).Methods("POST")
	r.HandleFunc("/polygons/{id}", h.GetPolygon).Methods("GET")
	r.HandleFunc("/polygons/{id}", h.DeletePolygon).Methods("DELETE")
	r.HandleFunc("/polygons/{id}/companies", h.AddCompany).Methods("POST")

	r.HandleFunc("/document", h.GetDocument).Methods("GET")
}

type moveRequest struct {
	PolygonID string `json:"polygonId"`
}

// --- Organizations ---

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListOrganizations(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetOrganization(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationInput
	if !decode(w, r, &req) {
		return
	}
	org, err := h.service.CreateOrganization(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationInput
	if !decode(w, r, &req) {
		return
	}
	org, err := h.service.UpdateOrganization(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrganization(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPopupTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, document.PopupTypeList())
}

// --- Popups ---

func (h *Handler) ListPopups(w http.ResponseWriter, r *http.Request) {
	popups, err := h.service.ListPopups(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, popups)
}

func (h *Handler) CreatePopup(w http.ResponseWriter, r *http.Request) {
	var req PopupInput
	if !decode(w, r, &req) {
		return
	}
	popup, err := h.service.CreatePopup(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, popup)
}

func (h *Handler) DeletePopup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePopup(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MovePopup(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.MovePopup(r.Context(), mux.Vars(r)["id"], req.PolygonID); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// --- Polygons ---

func (h *Handler) ListPolygons(w http.ResponseWriter, r *http.Request) {
	polys, err := h.service.ListPolygons(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polys)
}

func (h *Handler) GetPolygon(w http.ResponseWriter, r *http.Request) {
	poly, err := h.service.GetPolygon(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poly)
}

func (h *Handler) CreatePolygon(w http.ResponseWriter, r *http.Request) {
	var req PolygonInput
	if !decode(w, r, &req) {
		return
	}
	poly, err := h.service.CreatePolygon(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, poly)
}

func (h *Handler) DeletePolygon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePolygon(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddCompany(w http.ResponseWriter, r *http.Request) {
	var req PopupInput
	if !decode(w, r, &req) {
		return
	}
	popup, err := h.service.AddCompany(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, popup)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrInvalidInput), errors.Is(err, asset.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
