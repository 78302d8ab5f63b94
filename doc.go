// Package broadbandplanservice é o backend de planos e conexões de banda
// larga.
//
// Visão Geral:
// Administradores criam, atualizam e desativam planos; usuários listam os
// planos e criam ou consultam a própria conexão. Todo acesso autenticado passa
// pelo serviço externo de autenticação.
//
// Sub-Pacotes Principais:
//
// 1. dyndb:
//   - Store[T] genérico sobre DynamoDB (partition + sort key).
//   - Escrita condicional, update com attribute_exists, Query e BatchGet.
//
// 2. pkg/broadband:
//   - Camada de acesso: orquestra store e cache (cache-aside) para planos e
//     conexões, com unicidade por número móvel.
//
// 3. pkg/cache:
//   - Redis com namespaces separados para listagens e conexões.
//
// 4. pkg/transport:
//   - Roteador HTTP (gorilla/mux), adaptador Lambda e listener SQS de
//     invalidação de cache.
//
// 5. pkg/config, envloader:
//   - YAML local, S3 ou DynamoDB, sobrescrito por variáveis de ambiente e
//     referências ${env.X}, ${ssm./path} e ${secret.id#campo}.
//
// O binário fica em cmd/server e lê o caminho da configuração de
// CONFIG_FILE_PATH.
package broadbandplanservice
