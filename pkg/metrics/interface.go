package metrics

import "time"

// Provider define o contrato para envio de métricas.
// Isso permite trocar Datadog por Prometheus ou Logging sem alterar a lógica de negócio.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Noop descarta tudo. Usado quando métricas estão desabilitadas.
type Noop struct{}

func (Noop) Count(name string, value float64, tags []string) error     { return nil }
func (Noop) Gauge(name string, value float64, tags []string) error     { return nil }
func (Noop) Histogram(name string, value float64, tags []string) error { return nil }

// Nomes das métricas emitidas pelo serviço.
const (
	CacheHit             = "broadband.cache.hit"
	CacheMiss            = "broadband.cache.miss"
	CacheError           = "broadband.cache.error"
	CacheInvalidated     = "broadband.cache.invalidated_keys"
	InvalidationFailed   = "broadband.cache.invalidation_failed"
	StoreLatency         = "broadband.store.latency_ms"
	StoreError           = "broadband.store.error"
	OperationLatency     = "broadband.operation.latency_ms"
	AuthRejected         = "broadband.auth.rejected"
	HTTPRequests         = "broadband.http.requests"
	InvalidationMessages = "broadband.invalidation.messages"
)

// Tag formata uma tag no padrão chave:valor do statsd.
func Tag(key, value string) string {
	return key + ":" + value
}

// Since registra no histograma o tempo decorrido em milissegundos.
// Erros do provider são descartados.
func Since(p Provider, name string, start time.Time, tags ...string) {
	_ = p.Histogram(name, float64(time.Since(start).Microseconds())/1000, tags)
}

// Incr soma um no contador, descartando erros do provider.
func Incr(p Provider, name string, tags ...string) {
	_ = p.Count(name, 1, tags)
}
