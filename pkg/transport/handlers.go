package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/raywall/broadband-plan-service/pkg/broadband"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	msgAdminOnly       = "This route is only authorised for Admins"
	msgAdminReserved   = "Reserved route for Admin"
	msgConnCreated     = "Created new broadband connection successfully"
	msgConnFetched     = "Connection fetched successfully"
	msgDuplicateNumber = "New connection with duplicate phone number cannot be initiated: "
	msgDatabase        = "Error while connecting to Database "
	msgInternal        = "An internal server error occurred: "

	maxBodyBytes = 1 << 20
)

// PlanService é o que os handlers consomem de *broadband.Service.
type PlanService interface {
	AddPlan(ctx context.Context, plan models.Plan) (*models.Plan, error)
	UpdatePlan(ctx context.Context, plan models.Plan, planID string) (*models.Plan, error)
	DeletePlan(ctx context.Context, planID string) (bool, error)
	ListPlans(ctx context.Context, r models.FilterRequest) ([]models.Plan, error)
	GetPlanDetails(ctx context.Context, planType string, ids []string) (map[string]models.Plan, error)
	CreateConnection(ctx context.Context, conn models.Connection, subject string) (*models.Connection, error)
	GetConnection(ctx context.Context, subject, status string) (*models.Connection, error)
}

var _ PlanService = (*broadband.Service)(nil)

// Envelopes de resposta.
type (
	PlanResponse struct {
		Status string       `json:"status"`
		Data   *models.Plan `json:"data,omitempty"`
	}

	PlanListResponse struct {
		Status string        `json:"status"`
		Data   []models.Plan `json:"data"`
	}

	MessageResponse struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	ConnectionCreatedResponse struct {
		Status  string             `json:"status"`
		Message string             `json:"message"`
		Data    *models.Connection `json:"data,omitempty"`
	}

	ConnectionResponse struct {
		Status              string             `json:"status"`
		Message             string             `json:"message"`
		BroadbandConnection *models.Connection `json:"broadbandConnection,omitempty"`
	}

	PlanDetailsRequest struct {
		PlanIDList []string `json:"planIdList" validate:"required,min=1,dive,required"`
		PlanType   string   `json:"planType"`
	}

	PlanDetailsResponse struct {
		Status      string                 `json:"status"`
		MobilePlans map[string]models.Plan `json:"mobilePlans"`
	}

	ErrorResponse struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	}
)

type handlers struct {
	svc      PlanService
	validate *validator.Validate
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "live")
}

func (h *handlers) listPlans(w http.ResponseWriter, r *http.Request) {
	req, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plans, err := h.svc.ListPlans(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Status: statusName(http.StatusOK), Data: plans})
}

func (h *handlers) addPlan(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if !h.decode(w, r, &plan) {
		return
	}

	created, err := h.svc.AddPlan(r.Context(), plan)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PlanResponse{Status: statusName(http.StatusCreated), Data: created})
}

func (h *handlers) updatePlan(w http.ResponseWriter, r *http.Request) {
	var plan models.Plan
	if !h.decode(w, r, &plan) {
		return
	}

	updated, err := h.svc.UpdatePlan(r.Context(), plan, mux.Vars(r)["planId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Status: statusName(http.StatusOK), Data: updated})
}

func (h *handlers) deletePlan(w http.ResponseWriter, r *http.Request) {
	planID := mux.Vars(r)["planId"]

	deleted, err := h.svc.DeletePlan(r.Context(), planID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	msg := planID + " Already deleted"
	if deleted {
		msg = planID + " Successfully deleted"
	}
	writeJSON(w, http.StatusOK, MessageResponse{Status: statusName(http.StatusOK), Message: msg})
}

func (h *handlers) planDetails(w http.ResponseWriter, r *http.Request) {
	var req PlanDetailsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PlanType == "" {
		req.PlanType = models.DefaultPlanType
	}

	plans, err := h.svc.GetPlanDetails(r.Context(), req.PlanType, req.PlanIDList)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PlanDetailsResponse{Status: statusName(http.StatusOK), MobilePlans: plans})
}

func (h *handlers) createConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok || id.MobileNumber == "" {
		writeText(w, http.StatusForbidden, msgInvalidToken)
		return
	}

	var conn models.Connection
	if !h.decode(w, r, &conn) {
		return
	}

	created, err := h.svc.CreateConnection(r.Context(), conn, id.MobileNumber)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ConnectionCreatedResponse{
		Status:  statusName(http.StatusCreated),
		Message: msgConnCreated,
		Data:    created,
	})
}

func (h *handlers) myConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok || id.MobileNumber == "" {
		writeText(w, http.StatusForbidden, msgInvalidToken)
		return
	}

	conn, err := h.svc.GetConnection(r.Context(), id.MobileNumber, models.StatusActive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectionResponse{
		Status:              statusName(http.StatusOK),
		Message:             msgConnFetched,
		BroadbandConnection: conn,
	})
}

// decode lê o corpo JSON e valida as tags. Responde 400 e devolve false em
// caso de erro.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, e.Field()+" failed on '"+e.Tag()+"'")
			}
			writeError(w, http.StatusBadRequest, "Validation failed: "+strings.Join(msgs, ", "))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail traduz os erros do domínio para status HTTP.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	switch {
	case errors.Is(err, broadband.ErrNotFound):
		logger.Warn().Err(err).Msg("recurso não encontrado")
		writeError(w, http.StatusNotFound, "Resource not found: "+err.Error())
	case errors.Is(err, broadband.ErrDuplicateSubject):
		logger.Warn().Err(err).Msg("conexão duplicada")
		writeError(w, http.StatusConflict, msgDuplicateNumber+err.Error())
	case errors.Is(err, broadband.ErrDuplicatePlan):
		logger.Warn().Err(err).Msg("plano duplicado")
		writeError(w, http.StatusConflict, "Plan already exists: "+err.Error())
	case errors.Is(err, broadband.ErrStoreUnavailable):
		logger.Error().Err(err).Msg("falha no store")
		writeError(w, http.StatusInternalServerError, msgDatabase+err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Msg("timeout da requisição")
		writeError(w, http.StatusGatewayTimeout, msgInternal+err.Error())
	default:
		logger.Error().Err(err).Msg("erro interno")
		writeError(w, http.StatusInternalServerError, msgInternal+err.Error())
	}
}

// filterFromQuery monta o FilterRequest a partir da query string.
// Parâmetros ausentes ficam nil; type, offset e limit têm padrão.
func filterFromQuery(r *http.Request) (models.FilterRequest, error) {
	q := r.URL.Query()
	req := models.NewFilterRequest()

	optional := func(name string) *string {
		if !q.Has(name) {
			return nil
		}
		return models.String(q.Get(name))
	}

	// viram condição de chave na Query; vazio é rejeitado pelo DynamoDB
	for _, name := range []string{"active", "planId", "speed"} {
		if q.Has(name) && q.Get(name) == "" {
			return req, errors.New(name + " must not be empty")
		}
	}

	req.Active = optional("active")
	req.PlanID = optional("planId")
	req.Category = optional("category")
	req.Data = optional("data")
	req.Speed = optional("speed")
	if v := q.Get("type"); v != "" {
		req.Type = v
	}

	var err error
	if req.Offset, err = intParam(q.Get("offset"), models.DefaultOffset); err != nil {
		return req, errors.New("offset must be an integer")
	}
	if req.Limit, err = intParam(q.Get("limit"), models.DefaultLimit); err != nil {
		return req, errors.New("limit must be an integer")
	}
	return req, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// statusName reproduz o nome do enum de status usado nos envelopes.
func statusName(code int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Status: statusName(code), ErrorMessage: msg})
}
