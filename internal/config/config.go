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

// Package config loads the configuration of the recall binary.
package config

// Config holds all configuration of the binary.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Outbound  OutboundConfig  `mapstructure:"outbound"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Session   SessionConfig   `mapstructure:"session"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// StoreConfig selects the event store and view store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"       validate:"required,oneof=memory mongodb postgres"`
	MongoURI    string `mapstructure:"mongo_uri"    validate:"required_if=Driver mongodb"`
	PostgresURI string `mapstructure:"postgres_uri" validate:"required_if=Driver postgres"`
	Database    string `mapstructure:"database"     validate:"required_unless=Driver memory"`
}

// OutboundConfig enables the outbound adapters, an empty address disables
// an adapter.
type OutboundConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisStream   string `mapstructure:"redis_stream"   validate:"required_with=RedisAddr"`
	NATSURL       string `mapstructure:"nats_url"`
	NATSSubject   string `mapstructure:"nats_subject"   validate:"required_with=NATSURL"`
	KafkaAddr     string `mapstructure:"kafka_addr"`
	KafkaTopic    string `mapstructure:"kafka_topic"    validate:"required_with=KafkaAddr"`
	GCPProject    string `mapstructure:"gcp_project"`
	GCPTopic      string `mapstructure:"gcp_topic"      validate:"required_with=GCPProject"`
	WebsocketAddr string `mapstructure:"websocket_addr"`
	WebsocketPath string `mapstructure:"websocket_path" validate:"required_with=WebsocketAddr"`
	ClientBuffer  int    `mapstructure:"client_buffer"  validate:"gte=0"`
}

// DigestConfig schedules the due card digest, an empty schedule disables it.
type DigestConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// TracingConfig configures the jaeger tracer.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ServiceName    string  `mapstructure:"service_name"    validate:"required_if=Enabled true"`
	ZipkinEndpoint string  `mapstructure:"zipkin_endpoint" validate:"required_if=Enabled true,omitempty,url"`
	SampleRate     float64 `mapstructure:"sample_rate"     validate:"gte=0,lte=1"`
}

// SchedulerConfig configures the FSRS scheduler.
type SchedulerConfig struct {
	DesiredRetention float64 `mapstructure:"desired_retention" validate:"gt=0,lt=1"`
	MaximumInterval  float64 `mapstructure:"maximum_interval"  validate:"gte=1"`
}

// SessionConfig configures how sessions are started.
type SessionConfig struct {
	DueOnly  bool `mapstructure:"due_only"`
	Attempts int  `mapstructure:"attempts" validate:"gte=1"`
}
