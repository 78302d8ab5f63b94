// Package dyndb fornece uma abstração genérica e fortemente tipada sobre o
// AWS DynamoDB Go SDK (v2).
//
// Visão Geral:
// A interface `Store[T]` expõe somente as operações que a camada de acesso
// precisa: leitura por chave, escrita condicional, atualização de atributos,
// leitura em lote e Query com filtros de igualdade.
//
// Funcionalidades Principais:
//   - Escrita condicional: `PutIfAbsent` usa attribute_not_exists na hash e na
//     sort key; um conflito retorna `ErrConditionFailed`.
//   - Update seguro: `Update` exige attribute_exists, nunca cria item novo.
//   - Erros tipados: falhas do SDK que não são de condição viram
//     `ErrUnavailable`, sem inspecionar a mensagem do erro.
//   - Codec plugável: `TableConfig.Codec` controla o formato gravado.
//   - `MemoryStore` e `MockStore` para testes e execução local.
//
// Exemplo:
//
//	cfg := dyndb.TableConfig[Plan]{TableName: "plan-table", HashKey: "PlanType", SortKey: "PlanID"}
//	plans := dyndb.New(client, cfg)
//
//	err := plans.PutIfAbsent(ctx, plan)
//	if errors.Is(err, dyndb.ErrConditionFailed) { /* já existe */ }
//
//	items, err := plans.Find(ctx, dyndb.QuerySpec{}.
//		KeyEqual("PlanType", "Broadband").
//		FilterEqual("Active", "True"))
package dyndb
