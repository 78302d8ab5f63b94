package mapper

import (
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/models"
)

// PlanTable descreve a tabela de planos: partição PlanType, ordenação PlanID.
func PlanTable(name string) dyndb.TableConfig[models.Plan] {
	return dyndb.TableConfig[models.Plan]{
		TableName: name,
		HashKey:   AttrPlanType,
		SortKey:   AttrPlanID,
		Codec:     PlanCodec{},
	}
}

// ConnectionTable descreve a tabela de conexões: partição ConnectionStatus,
// ordenação MobileNumber. A chave garante uma conexão por status e número.
func ConnectionTable(name string) dyndb.TableConfig[models.Connection] {
	return dyndb.TableConfig[models.Connection]{
		TableName: name,
		HashKey:   AttrConnectionStatus,
		SortKey:   AttrMobileNumber,
		Codec:     ConnectionCodec{},
	}
}
