// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package envloader aplica variáveis de ambiente sobre uma struct de
// configuração já carregada, usando as tags `env` e `envDefault`.
//
// A variável, quando existe (mesmo vazia), sempre vence. O `envDefault` só
// preenche campos que continuam com o valor zero, então valores vindos do
// arquivo YAML não são apagados pelo default.
//
// Tipos suportados: string, inteiros, bool, float, time.Duration e []string
// (separado por vírgula), além de structs aninhadas e ponteiros para struct.
//
//	type RedisConf struct {
//		Addr string        `yaml:"addr" env:"REDIS_ADDR"`
//		TTL  time.Duration `yaml:"ttl" env:"REDIS_TTL" envDefault:"5m"`
//	}
//
//	var cfg RedisConf
//	_ = yaml.Unmarshal(data, &cfg)
//	if err := envloader.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package envloader
