// Package mapper converte registros do DynamoDB em planos e conexões.
//
// A decodificação nunca falha: atributo ausente, NULL ou com o sentinela
// "null" vira campo vazio. A codificação mantém o formato histórico da tabela:
// escalares ausentes são gravados como "null" e listas ausentes como L vazia.
package mapper

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/models"
)

// NullToken é gravado no lugar de escalares ausentes.
const NullToken = "null"

// Atributos da tabela de planos
const (
	AttrPlanID     = "PlanID"
	AttrPlanType   = "PlanType"
	AttrPrice      = "Price"
	AttrCategory   = "Category"
	AttrValidity   = "Validity"
	AttrOTT        = "OTT"
	AttrVoiceLimit = "VoiceLimit"
	AttrSMS        = "SMS"
	AttrTotalData  = "TotalData"
	AttrCouponIDs  = "CouponIDs"
	AttrPlanLimit  = "PlanLimit"
	AttrSpeed      = "Speed"
	AttrActive     = "Active"
)

// Atributos da tabela de conexões
const (
	AttrConnectionID     = "ConnectionID"
	AttrMobileNumber     = "MobileNumber"
	AttrConnectionStatus = "ConnectionStatus"
	AttrCustomerName     = "CustomerName"
	AttrAddress          = "Address"
	AttrCity             = "City"
	AttrState            = "State"
	AttrCountry          = "Country"
	AttrPINCode          = "PINCode"
)

// ToPlan decodifica um item da tabela de planos.
func ToPlan(item map[string]types.AttributeValue) models.Plan {
	return models.Plan{
		PlanID:     scalar(item, AttrPlanID),
		PlanType:   scalar(item, AttrPlanType),
		Price:      scalar(item, AttrPrice),
		Category:   scalar(item, AttrCategory),
		Validity:   scalar(item, AttrValidity),
		OTT:        list(item, AttrOTT),
		VoiceLimit: scalar(item, AttrVoiceLimit),
		SMS:        scalar(item, AttrSMS),
		Data:       scalar(item, AttrTotalData),
		CouponIDs:  list(item, AttrCouponIDs),
		Limit:      scalar(item, AttrPlanLimit),
		Speed:      scalar(item, AttrSpeed),
		Active:     scalar(item, AttrActive),
	}
}

// FromPlan codifica um plano completo para PutItem.
func FromPlan(p models.Plan) map[string]types.AttributeValue {
	planType := p.PlanType
	if planType == "" {
		planType = models.DefaultPlanType
	}

	item := map[string]types.AttributeValue{
		AttrPlanID:   str(p.PlanID),
		AttrPlanType: str(planType),
	}
	for name, value := range PlanChanges(p) {
		switch v := value.(type) {
		case string:
			item[name] = str(v)
		case []string:
			item[name] = strList(v)
		}
	}
	return item
}

// PlanChanges devolve todos os atributos não chave do plano, no formato de
// gravação, para um Update de substituição completa.
func PlanChanges(p models.Plan) map[string]any {
	active := p.Active
	if active == "" {
		active = models.ActiveTrue
	}

	return map[string]any{
		AttrPrice:      orNull(p.Price),
		AttrCategory:   orNull(p.Category),
		AttrValidity:   orNull(p.Validity),
		AttrOTT:        orEmpty(p.OTT),
		AttrVoiceLimit: orNull(p.VoiceLimit),
		AttrSMS:        orNull(p.SMS),
		AttrTotalData:  orNull(p.Data),
		AttrCouponIDs:  orEmpty(p.CouponIDs),
		AttrPlanLimit:  orNull(p.Limit),
		AttrSpeed:      orNull(p.Speed),
		AttrActive:     active,
	}
}

// ToConnection decodifica um item da tabela de conexões.
func ToConnection(item map[string]types.AttributeValue) models.Connection {
	return models.Connection{
		ConnectionID:     scalar(item, AttrConnectionID),
		MobileNumber:     scalar(item, AttrMobileNumber),
		ConnectionStatus: scalar(item, AttrConnectionStatus),
		CustomerName:     scalar(item, AttrCustomerName),
		Address:          scalar(item, AttrAddress),
		City:             scalar(item, AttrCity),
		State:            scalar(item, AttrState),
		Country:          scalar(item, AttrCountry),
		PINCode:          scalar(item, AttrPINCode),
	}
}

// FromConnection codifica uma conexão para PutItem.
func FromConnection(c models.Connection) map[string]types.AttributeValue {
	status := c.ConnectionStatus
	if status == "" {
		status = models.StatusActive
	}

	return map[string]types.AttributeValue{
		AttrConnectionID:     str(orNull(c.ConnectionID)),
		AttrMobileNumber:     str(c.MobileNumber),
		AttrConnectionStatus: str(status),
		AttrCustomerName:     str(orNull(c.CustomerName)),
		AttrAddress:          str(orNull(c.Address)),
		AttrCity:             str(orNull(c.City)),
		AttrState:            str(orNull(c.State)),
		AttrCountry:          str(orNull(c.Country)),
		AttrPINCode:          str(orNull(c.PINCode)),
	}
}

// PlanCodec liga o mapper ao dyndb.Store.
type PlanCodec struct{}

var _ dyndb.Codec[models.Plan] = PlanCodec{}

func (PlanCodec) Encode(p models.Plan) (map[string]types.AttributeValue, error) {
	return FromPlan(p), nil
}

func (PlanCodec) Decode(item map[string]types.AttributeValue) (models.Plan, error) {
	return ToPlan(item), nil
}

// ConnectionCodec liga o mapper ao dyndb.Store.
type ConnectionCodec struct{}

var _ dyndb.Codec[models.Connection] = ConnectionCodec{}

func (ConnectionCodec) Encode(c models.Connection) (map[string]types.AttributeValue, error) {
	return FromConnection(c), nil
}

func (ConnectionCodec) Decode(item map[string]types.AttributeValue) (models.Connection, error) {
	return ToConnection(item), nil
}

func scalar(item map[string]types.AttributeValue, name string) string {
	v := text(item[name])
	if v == NullToken {
		return ""
	}
	return v
}

func list(item map[string]types.AttributeValue, name string) []string {
	var out []string
	switch av := item[name].(type) {
	case *types.AttributeValueMemberL:
		for _, el := range av.Value {
			out = append(out, text(el))
		}
	case *types.AttributeValueMemberSS:
		out = append(out, av.Value...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func text(v types.AttributeValue) string {
	switch av := v.(type) {
	case *types.AttributeValueMemberS:
		return av.Value
	case *types.AttributeValueMemberN:
		return av.Value
	case *types.AttributeValueMemberBOOL:
		if av.Value {
			return models.ActiveTrue
		}
		return models.ActiveFalse
	default:
		return ""
	}
}

func str(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func strList(values []string) types.AttributeValue {
	l := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		l = append(l, str(v))
	}
	return &types.AttributeValueMemberL{Value: l}
}

func orNull(v string) string {
	if v == "" {
		return NullToken
	}
	return v
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
