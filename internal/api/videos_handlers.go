package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"camvault/internal/models"
	"camvault/internal/storage"
)

type videoUploadRequest struct {
	VideoData   string   `json:"video_data"`
	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`
	PhoneNumber *string  `json:"phone_number"`
}

type videoUploadResponse struct {
	Message string `json:"message"`
	VideoID string `json:"video_id"`
}

type videoSummaryResponse struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`
	PhoneNumber *string  `json:"phone_number"`
}

type videoRecordResponse struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	VideoData   string   `json:"video_data"`
	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`
	PhoneNumber *string  `json:"phone_number"`
	Timestamp   string   `json:"timestamp"`
}

type videoDeleteResponse struct {
	Message string `json:"message"`
}

func newVideoSummaryResponse(summary models.VideoSummary) videoSummaryResponse {
	return videoSummaryResponse{
		ID:          summary.ID,
		Timestamp:   summary.Timestamp.Format(time.RFC3339Nano),
		LocationLat: summary.LocationLat,
		LocationLng: summary.LocationLng,
		PhoneNumber: summary.PhoneNumber,
	}
}

func newVideoRecordResponse(record models.VideoRecord) videoRecordResponse {
	return videoRecordResponse{
		ID:          record.ID,
		UserID:      record.UserID,
		VideoData:   record.VideoData,
		LocationLat: record.LocationLat,
		LocationLng: record.LocationLng,
		PhoneNumber: record.PhoneNumber,
		Timestamp:   record.Timestamp.Format(time.RFC3339Nano),
	}
}

// UploadVideo stores a base64-encoded clip owned by the authenticated user.
// The payload is stored exactly as received so a later fetch decodes to the
// same bytes that were uploaded.
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	var req videoUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.VideoData == "" {
		writeError(w, http.StatusBadRequest, errors.New("video_data is required"))
		return
	}
	if _, err := base64.StdEncoding.DecodeString(req.VideoData); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("video_data is not valid base64: %w", err))
		return
	}

	record, err := h.Store.CreateVideo(r.Context(), storage.CreateVideoParams{
		UserID:      user.ID,
		VideoData:   req.VideoData,
		LocationLat: req.LocationLat,
		LocationLng: req.LocationLng,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, videoUploadResponse{
		Message: "Video uploaded successfully",
		VideoID: record.ID,
	})
}

// Videos lists the caller's clips as summaries without the payload field.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	summaries, err := h.Store.ListVideos(r.Context(), user.ID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	response := make([]videoSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, newVideoSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, response)
}

// VideoByID fetches or deletes a single clip. Both operations are scoped to
// the caller: a foreign id is reported exactly like a missing one.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, errors.New("Video not found"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := h.Store.GetVideo(r.Context(), id, user.ID)
		if err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				writeError(w, http.StatusNotFound, errors.New("Video not found"))
				return
			}
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newVideoRecordResponse(record))
	case http.MethodDelete:
		if err := h.Store.DeleteVideo(r.Context(), id, user.ID); err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				writeError(w, http.StatusNotFound, errors.New("Video not found"))
				return
			}
			h.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, videoDeleteResponse{Message: "Video deleted successfully"})
	default:
		methodNotAllowed(w, r, "GET, DELETE")
	}
}
