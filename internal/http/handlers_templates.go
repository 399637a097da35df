package http

import (
	"net/http"

	"moneta/internal/core"
)

type templateRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"` // unsigned decimal magnitude
	CategoryID  string `json:"categoryId"`
	Type        string `json:"type"`
	DayOfMonth  int    `json:"dayOfMonth"`
	Active      *bool  `json:"active,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

type templateResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	CategoryID  string `json:"categoryId"`
	Type        string `json:"type"`
	DayOfMonth  int    `json:"dayOfMonth"`
	Active      bool   `json:"active"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
}

func toTemplateResponse(tpl core.RecurringTemplate) templateResponse {
	resp := templateResponse{
		ID:          tpl.ID,
		Description: tpl.Description,
		Amount:      tpl.Amount.Decimal(),
		AmountCents: tpl.Amount.Cents,
		CategoryID:  tpl.CategoryID,
		Type:        string(tpl.Type),
		DayOfMonth:  tpl.DayOfMonth,
		Active:      tpl.Active,
	}
	if !tpl.StartDate.IsEmpty() {
		resp.StartDate = tpl.StartDate.String()
	}
	if !tpl.EndDate.IsEmpty() {
		resp.EndDate = tpl.EndDate.String()
	}
	return resp
}

func parseTemplate(req templateRequest) (core.RecurringTemplate, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RecurringTemplate{}, err
	}

	tpl := core.RecurringTemplate{
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		CategoryID:  sanitizeInput(req.CategoryID),
		Type:        core.TxType(req.Type),
		DayOfMonth:  req.DayOfMonth,
		Active:      true,
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}

	if req.StartDate != "" {
		d, err := parseDate(req.StartDate)
		if err != nil {
			return core.RecurringTemplate{}, core.ErrInvalidDate
		}
		tpl.StartDate = d
	}
	if req.EndDate != "" {
		d, err := parseDate(req.EndDate)
		if err != nil {
			return core.RecurringTemplate{}, core.ErrInvalidDate
		}
		tpl.EndDate = d
	}

	return tpl, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, toTemplateResponse(tpl))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.service.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := parseTemplate(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.service.CreateTemplate(r.Context(), tpl)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateResponse(created))
}

// handleUpdateTemplate saves the edited template. With ?impactPast=true the
// edit is also propagated to every transaction already generated from it.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tpl, err := parseTemplate(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tpl.ID = r.PathValue("id")

	impactPast := r.URL.Query().Get("impactPast") == "true"

	if err := s.service.UpdateTemplate(r.Context(), tpl, impactPast); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateResponse(tpl))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
