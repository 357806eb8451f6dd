package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"diabcare/internal/apperrors"
	"diabcare/internal/middleware"
	"diabcare/internal/predictor"
	"diabcare/internal/repository"
	"diabcare/internal/service"
	"diabcare/internal/validation"

	"github.com/gin-gonic/gin"
)

// PatientHandler serves patient registration, the dashboard and deletion.
type PatientHandler struct {
	svc *service.PatientService
}

// NewPatientHandler returns a handler backed by svc.
func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

// PredictionView reports what the classifier said about a new patient.
type PredictionView struct {
	Available  bool    `json:"available"`
	Label      *int    `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
	Result     string  `json:"result"`
	Error      string  `json:"error,omitempty"`
}

func newPredictionView(o predictor.Outcome) PredictionView {
	v := PredictionView{Available: o.Available(), Result: o.ResultText()}
	if o.Available() {
		label := o.Label
		v.Label = &label
		v.Confidence = o.Confidence
	} else if o.Err != nil {
		v.Error = o.Err.Error()
	}
	return v
}

// SubmitForm handles the patient form. On success the browser is sent back
// to the dashboard with a confirmation message.
func (h *PatientHandler) SubmitForm(c *gin.Context) {
	var form validation.PatientForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, fmt.Errorf("%w: %w", apperrors.ErrValidation, err), "Invalid patient form")
		return
	}

	res, err := h.svc.Register(c.Request.Context(), middleware.PrincipalFrom(c), form)
	if err != nil {
		respondError(c, err, "Failed to add patient")
		return
	}

	msg := "Patient ajouté avec succès. Résultat: " + res.Patient.Result
	c.Redirect(http.StatusSeeOther, "/patients?success="+url.QueryEscape(msg))
}

// CreatePatient handles a JSON patient submission.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var in validation.PatientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, fmt.Errorf("%w: %w", apperrors.ErrValidation, err), "Invalid request body")
		return
	}
	features, err := in.Features()
	if err != nil {
		respondError(c, err, "Invalid patient data")
		return
	}

	res, err := h.svc.RegisterFeatures(c.Request.Context(), middleware.PrincipalFrom(c), features)
	if err != nil {
		respondError(c, err, "Failed to add patient")
		return
	}

	respondData(c, http.StatusCreated, gin.H{
		"patient":    res.Patient,
		"prediction": newPredictionView(res.Outcome),
	})
}

// Dashboard lists the doctor's patients. filter_status and sort_by select
// and order them; flash messages from redirects are echoed back.
func (h *PatientHandler) Dashboard(c *gin.Context) {
	q := repository.DashboardQuery{
		Filter: repository.ParseFilter(c.Query("filter_status")),
		Sort:   repository.ParseSort(c.Query("sort_by")),
	}
	principal := middleware.PrincipalFrom(c)

	d, err := h.svc.Dashboard(c.Request.Context(), principal, q)
	if err != nil {
		respondError(c, err, "Failed to load patients")
		return
	}

	body := gin.H{
		"patients":       d.Patients,
		"stats":          d.Stats,
		"current_filter": d.Filter,
		"current_sort":   d.Sort,
		"username":       principal.Username,
	}
	if msg := c.Query("success"); msg != "" {
		body["flash_success"] = msg
	}
	if msg := c.Query("error"); msg != "" {
		body["flash_error"] = msg
	}
	respondData(c, http.StatusOK, body)
}

// GetPatient returns one patient with its predictions.
func (h *PatientHandler) GetPatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	patient, err := h.svc.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}
	respondData(c, http.StatusOK, patient)
}

// DeleteForm deletes a patient from the dashboard and redirects back to it.
func (h *PatientHandler) DeleteForm(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	err := h.svc.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id)
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/patients?success="+url.QueryEscape("Patient supprimé avec succès"))
	case errors.Is(err, apperrors.ErrNotFound):
		c.Redirect(http.StatusSeeOther, "/patients?error="+url.QueryEscape("Patient non trouvé"))
	default:
		respondError(c, err, "Failed to delete patient")
	}
}

// DeletePatient deletes a patient through the JSON API.
func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.PrincipalFrom(c), id); err != nil {
		respondError(c, err, "Failed to delete patient")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Patient deleted"})
}
