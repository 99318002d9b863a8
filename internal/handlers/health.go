package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinova/medbook/internal/database"
	"github.com/clinova/medbook/internal/models"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// templatesSeeded reports whether the notification templates the booking
// flows dispatch against are present.
func templatesSeeded() bool {
	var count int64
	if err := database.DB.Model(&models.NotificationTemplate{}).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	sqlDB, err := database.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		response.Services["database"] = "unhealthy"
		response.Status = "degraded"
	} else {
		response.Services["database"] = "healthy"
	}

	// Booking notifications silently no-op without their templates.
	if templatesSeeded() {
		response.Services["templates"] = "seeded"
	} else {
		response.Services["templates"] = "missing"
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := database.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		http.Error(w, "Service not ready", http.StatusServiceUnavailable)
		return
	}
	if !templatesSeeded() {
		http.Error(w, "Templates not seeded", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
