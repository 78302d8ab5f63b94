// Package query traduz uma FilterRequest no padrão de acesso à tabela de
// planos: busca direta pela chave completa ou Query na partição do tipo.
package query

import (
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/mapper"
	"github.com/raywall/broadband-plan-service/pkg/models"
)

// Kind identifica o padrão de acesso escolhido.
type Kind int

const (
	// KeyLookup vincula PlanType e PlanID; no máximo um item.
	KeyLookup Kind = iota
	// PartitionQuery vincula só PlanType, com filtros de igualdade.
	PartitionQuery
)

func (k Kind) String() string {
	switch k {
	case KeyLookup:
		return "key_lookup"
	case PartitionQuery:
		return "partition_query"
	default:
		return "unknown"
	}
}

// StoreQuery é o resultado da tradução.
type StoreQuery struct {
	Kind Kind
	Spec dyndb.QuerySpec
}

// Translator monta a consulta. Por padrão só Active e Speed viram filtro na
// Query de partição; ExtendedFilters inclui também Category e TotalData.
type Translator struct {
	ExtendedFilters bool
}

// Translate é total: sempre devolve uma consulta com a partition key vinculada.
func (t Translator) Translate(r models.FilterRequest) StoreQuery {
	spec := dyndb.QuerySpec{}.KeyEqual(mapper.AttrPlanType, r.PlanType())

	if r.PlanID != nil {
		spec = spec.KeyEqual(mapper.AttrPlanID, *r.PlanID)
		if r.Active != nil {
			spec = spec.FilterEqual(mapper.AttrActive, *r.Active)
		}
		return StoreQuery{Kind: KeyLookup, Spec: spec}
	}

	if r.Active != nil {
		spec = spec.FilterEqual(mapper.AttrActive, *r.Active)
	}
	if r.Speed != nil {
		spec = spec.FilterEqual(mapper.AttrSpeed, *r.Speed)
	}
	if t.ExtendedFilters {
		if r.Category != nil {
			spec = spec.FilterEqual(mapper.AttrCategory, *r.Category)
		}
		if r.Data != nil {
			spec = spec.FilterEqual(mapper.AttrTotalData, *r.Data)
		}
	}

	return StoreQuery{Kind: PartitionQuery, Spec: spec}
}
