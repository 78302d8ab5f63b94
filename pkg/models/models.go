// Package models define os registros de domínio de planos e conexões.
package models

const (
	// DefaultPlanType é o tipo usado quando a requisição não informa um.
	DefaultPlanType = "Broadband"

	ActiveTrue  = "True"
	ActiveFalse = "False"

	// StatusActive é o único status gravado na criação de conexões.
	StatusActive = "Active"

	DefaultOffset = 0
	DefaultLimit  = 10
)

// Plan é um plano de banda larga. Campos escalares vazios representam
// atributos ausentes no store; listas nil idem.
type Plan struct {
	PlanID     string   `json:"planId,omitempty"`
	PlanType   string   `json:"planType,omitempty"`
	Price      string   `json:"price,omitempty" validate:"omitempty,numeric"`
	Category   string   `json:"category,omitempty"`
	Validity   string   `json:"validity,omitempty" validate:"omitempty,numeric"`
	OTT        []string `json:"ott,omitempty"`
	VoiceLimit string   `json:"voiceLimit,omitempty"`
	SMS        string   `json:"sms,omitempty"`
	Data       string   `json:"data,omitempty"`
	CouponIDs  []string `json:"couponIds,omitempty"`
	Limit      string   `json:"limit,omitempty"`
	Speed      string   `json:"speed,omitempty"`
	Active     string   `json:"active,omitempty" validate:"omitempty,oneof=True False"`
}

// IsActive indica se o plano não foi removido.
func (p Plan) IsActive() bool {
	return p.Active != ActiveFalse
}

// Connection é a conexão de um assinante, identificada pelo número móvel.
type Connection struct {
	ConnectionID     string `json:"connectionId,omitempty"`
	MobileNumber     string `json:"mobileNumber,omitempty"`
	ConnectionStatus string `json:"status,omitempty"`
	CustomerName     string `json:"name,omitempty" validate:"omitempty,max=120"`
	Address          string `json:"address,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	PINCode          string `json:"pinCode,omitempty" validate:"omitempty,numeric"`
}

// FilterRequest parametriza a listagem de planos. Campos ponteiro nil são
// filtros ausentes.
type FilterRequest struct {
	Active   *string
	PlanID   *string
	Type     string
	Category *string
	Data     *string
	Speed    *string
	Offset   int
	Limit    int
}

// NewFilterRequest devolve uma requisição com os valores padrão.
func NewFilterRequest() FilterRequest {
	return FilterRequest{
		Type:   DefaultPlanType,
		Offset: DefaultOffset,
		Limit:  DefaultLimit,
	}
}

// PlanType devolve o tipo efetivo, aplicando o padrão quando vazio.
func (r FilterRequest) PlanType() string {
	if r.Type == "" {
		return DefaultPlanType
	}
	return r.Type
}

// String é um atalho para montar filtros opcionais.
func String(v string) *string {
	return &v
}
