package metrics

import "sync"

// Sample é uma métrica recebida pelo Recorder.
type Sample struct {
	Type  string
	Name  string
	Value float64
	Tags  []string
}

// Recorder guarda as métricas em memória. Usado em testes e no runtime local.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

func (r *Recorder) Count(name string, value float64, tags []string) error {
	return r.add("count", name, value, tags)
}

func (r *Recorder) Gauge(name string, value float64, tags []string) error {
	return r.add("gauge", name, value, tags)
}

func (r *Recorder) Histogram(name string, value float64, tags []string) error {
	return r.add("histogram", name, value, tags)
}

func (r *Recorder) add(kind, name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Type: kind, Name: name, Value: value, Tags: append([]string(nil), tags...)})
	return nil
}

// Samples devolve uma cópia do que foi registrado.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Total soma os valores registrados com o nome informado.
func (r *Recorder) Total(name string) float64 {
	var total float64
	for _, s := range r.Samples() {
		if s.Name == name {
			total += s.Value
		}
	}
	return total
}
