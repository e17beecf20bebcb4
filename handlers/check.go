package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"licensemanager.app/cloud/internal/logger"
	"licensemanager.app/cloud/licensing"
)

type CheckLicenseRequest struct {
	LicenseKey    string `json:"licenseKey"`
	ProductName   string `json:"productName"`
	AccountNumber string `json:"accountNumber"`
}

type checkValidResponse struct {
	Status  string     `json:"status"`
	Product string     `json:"product"`
	Expires *time.Time `json:"expires"`
	Active  bool       `json:"active"`
}

type checkInvalidResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// CheckLicense is the machine-to-machine verification endpoint.
// Clients authenticate with the X-API-Secret header; every outcome is
// a flat {status, error} shape.
func (s *Server) CheckLicense(w http.ResponseWriter, r *http.Request) {
	s.checks.Inc()

	var req CheckLicenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.invalid.Inc()
		writeCheckInvalid(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	result, err := s.Service.Verify(r.Context(), licensing.VerifyRequest{
		LicenseKey:    req.LicenseKey,
		ProductName:   req.ProductName,
		AccountNumber: req.AccountNumber,
		Secret:        r.Header.Get("X-API-Secret"),
	})
	if err != nil {
		s.invalid.Inc()
		s.writeCheckError(w, r, err)
		return
	}

	s.valid.Inc()
	logger.Info("License verified", map[string]interface{}{
		"product":        result.Product,
		"account_number": req.AccountNumber,
	})

	writeJSON(w, http.StatusOK, checkValidResponse{
		Status:  "valid",
		Product: result.Product,
		Expires: result.Expires,
		Active:  result.Active,
	})
}

func (s *Server) writeCheckError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *licensing.ValidationError
	var notFoundErr *licensing.NotFoundError
	var conflictErr *licensing.StateConflictError

	switch {
	case errors.Is(err, licensing.ErrUnauthorized):
		writeCheckInvalid(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &validationErr):
		writeCheckInvalid(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		writeCheckInvalid(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		writeCheckInvalid(w, http.StatusForbidden, conflictErr.Reason)
	default:
		sentry.CaptureException(err)
		logger.Error("License check failed", map[string]interface{}{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		writeCheckInvalid(w, http.StatusInternalServerError, "Server error")
	}
}

func writeCheckInvalid(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, checkInvalidResponse{
		Status: "invalid",
		Error:  message,
	})
}
