package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"

	"licensemanager.app/cloud/internal/logger"
	"licensemanager.app/cloud/licensing"
)

var validate = validator.New()

type IssueLicenseRequest struct {
	ProductID   string     `json:"productId" validate:"required,uuid4"`
	ConsumerID  string     `json:"consumerId" validate:"required,uuid4"`
	LicenseType string     `json:"licenseType" validate:"required,oneof=trial full"`
	Expires     *time.Time `json:"expires"`
}

type ToggleLicenseRequest struct {
	LicenseID string `json:"licenseId" validate:"required,uuid4"`
	Active    *bool  `json:"active" validate:"required"`
}

type UpgradeLicenseRequest struct {
	LicenseID   string `json:"licenseId"`
	LicenseType string `json:"licenseType"`
}

type DeleteLicenseRequest struct {
	LicenseID string `json:"licenseId"`
}

func (s *Server) IssueLicense(w http.ResponseWriter, r *http.Request) {
	var req IssueLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := validate.Struct(req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, issueRequestMessage(err))
		return
	}

	license, err := s.Service.Issue(r.Context(), req.ProductID, req.ConsumerID, req.LicenseType, req.Expires)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	logger.Info("License issued", map[string]interface{}{
		"license_id":  license.ID,
		"product_id":  license.ProductID,
		"consumer_id": license.ConsumerID,
		"type":        license.Type,
	})

	writeJSON(w, http.StatusCreated, license)
}

// issueRequestMessage turns the first failed field into the wire
// message the management clients expect.
func issueRequestMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Missing required fields"
	}

	fe := fieldErrors[0]
	if fe.Tag() == "required" {
		return "Missing required fields"
	}

	switch fe.Field() {
	case "ProductID":
		return "Invalid productId"
	case "ConsumerID":
		return "Invalid consumerId"
	default:
		return "Invalid licenseType"
	}
}

func (s *Server) ListLicenses(w http.ResponseWriter, r *http.Request) {
	records, err := s.Service.List(r.Context())
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) ToggleLicense(w http.ResponseWriter, r *http.Request) {
	var req ToggleLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	if err := validate.Struct(req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Missing or invalid fields")
		return
	}

	license, err := s.Service.ToggleActive(r.Context(), req.LicenseID, *req.Active)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	logger.Info("License toggled", map[string]interface{}{
		"license_id": license.ID,
		"active":     license.Active,
	})

	writeJSON(w, http.StatusOK, license)
}

func (s *Server) UpgradeLicense(w http.ResponseWriter, r *http.Request) {
	var req UpgradeLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid licenseId")
		return
	}

	license, err := s.Service.Upgrade(r.Context(), req.LicenseID, req.LicenseType)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	logger.Info("License upgraded", map[string]interface{}{
		"license_id": license.ID,
	})

	writeJSON(w, http.StatusOK, license)
}

func (s *Server) DeleteLicense(w http.ResponseWriter, r *http.Request) {
	var req DeleteLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid licenseId")
		return
	}

	if err := s.Service.Delete(r.Context(), req.LicenseID); err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	logger.Info("License deleted", map[string]interface{}{
		"license_id": req.LicenseID,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "License deleted successfully"})
}

func (s *Server) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *licensing.ValidationError
	var notFoundErr *licensing.NotFoundError
	var conflictErr *licensing.StateConflictError

	switch {
	case errors.As(err, &validationErr):
		writeErrorResponse(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		writeErrorResponse(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		// The only management-side conflict is an already-full upgrade,
		// which the original API reports as a bad request.
		writeErrorResponse(w, http.StatusBadRequest, conflictErr.Reason)
	default:
		sentry.CaptureException(err)
		logger.Error("Management request failed", map[string]interface{}{
			"error":  err.Error(),
			"method": r.Method,
			"path":   r.URL.Path,
		})
		writeErrorResponse(w, http.StatusInternalServerError, "Server error")
	}
}
