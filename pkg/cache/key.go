package cache

import (
	"strconv"
	"strings"

	"github.com/raywall/broadband-plan-service/pkg/models"
)

const (
	planKeyPrefix  = "BroadbandPlans_"
	fieldSeparator = "_"

	// absentToken marca campo ausente; um valor literal "null" é escapado.
	absentToken = "null"
)

var escaper = strings.NewReplacer(`\`, `\\`, fieldSeparator, `\`+fieldSeparator)

// KeyFor monta a chave da listagem concatenando, em ordem fixa, active,
// planId, type, category, data, speed, offset e limit. Os valores são
// escapados, então requisições diferentes nunca colidem.
func KeyFor(r models.FilterRequest) string {
	fields := []string{
		optional(r.Active),
		optional(r.PlanID),
		present(r.Type),
		optional(r.Category),
		optional(r.Data),
		optional(r.Speed),
		strconv.Itoa(r.Offset),
		strconv.Itoa(r.Limit),
	}
	return planKeyPrefix + strings.Join(fields, fieldSeparator)
}

func optional(v *string) string {
	if v == nil {
		return absentToken
	}
	return escape(*v)
}

func present(v string) string {
	if v == "" {
		return absentToken
	}
	return escape(v)
}

func escape(v string) string {
	if v == absentToken {
		return `\` + absentToken
	}
	return escaper.Replace(v)
}
