// Copyright (c) 2021 - The Event Horizon authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables, for example
// RECALL_STORE_DRIVER sets store.driver.
const EnvPrefix = "RECALL"

// DotEnvFile is loaded into the environment before the config is read, if
// it exists. Variables that are already set are not overridden.
var DotEnvFile = ".env"

var defaults = map[string]interface{}{
	"log.level":                   "info",
	"log.format":                  "json",
	"store.driver":                "memory",
	"store.mongo_uri":             "",
	"store.postgres_uri":          "",
	"store.database":              "recall",
	"outbound.redis_addr":         "",
	"outbound.redis_stream":       "recall_updates",
	"outbound.nats_url":           "",
	"outbound.nats_subject":       "recall.updates",
	"outbound.kafka_addr":         "",
	"outbound.kafka_topic":        "recall_updates",
	"outbound.gcp_project":        "",
	"outbound.gcp_topic":          "recall_updates",
	"outbound.websocket_addr":     ":8080",
	"outbound.websocket_path":     "/updates",
	"outbound.client_buffer":      16,
	"digest.schedule":             "0 7 * * *",
	"tracing.enabled":             false,
	"tracing.service_name":        "recall",
	"tracing.zipkin_endpoint":     "http://localhost:9411/api/v1/spans",
	"tracing.sample_rate":         1.0,
	"scheduler.desired_retention": 0.9,
	"scheduler.maximum_interval":  36500.0,
	"session.due_only":            true,
	"session.attempts":            5,
}

// Load reads the configuration from the defaults, an optional YAML file and
// the environment, in increasing order of precedence. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load %s: %w", DotEnvFile, err)
	}

	v := viper.New()

	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if path != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates a loaded configuration.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
