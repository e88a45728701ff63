package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type IncidentServerConfig struct {
	HTTPAddr string

	ElasticHost     string
	ElasticUser     string
	ElasticPassword string
	ElasticIndex    string
	ElasticTimeout  time.Duration
	KBRetryUnit     time.Duration

	AirtableBaseURL string
	AirtableBaseID  string
	AirtableAPIKey  string
	AirtableTable   string
	TicketTimeout   time.Duration

	DBDSN string

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	SessionIdleTTL time.Duration
	MessagesFile   string
}

func LoadIncidentServerConfig() (IncidentServerConfig, error) {
	cfg := IncidentServerConfig{
		HTTPAddr:        getenvDefault("INCIDENT_HTTP_ADDR", ":9020"),
		ElasticHost:     strings.TrimRight(os.Getenv("ELASTIC_HOST"), "/"),
		ElasticUser:     os.Getenv("ELASTIC_ADMIN"),
		ElasticPassword: os.Getenv("ELASTIC_PSWD"),
		ElasticIndex:    getenvDefault("ELASTIC_INDEX", "supported_devices_v2"),
		ElasticTimeout:  time.Duration(getenvIntDefault("ELASTIC_TIMEOUT_SECONDS", 20)) * time.Second,
		KBRetryUnit:     time.Duration(getenvIntDefault("KB_RETRY_UNIT_MS", 1000)) * time.Millisecond,
		AirtableBaseURL: strings.TrimRight(getenvDefault("AIRTABLE_BASE_URL", "https://api.airtable.com"), "/"),
		AirtableBaseID:  os.Getenv("AIRTABLE_BASE_ID"),
		AirtableAPIKey:  os.Getenv("AIRTABLE_API_KEY"),
		AirtableTable:   getenvDefault("AIRTABLE_TABLE", "Incidents"),
		TicketTimeout:   time.Duration(getenvIntDefault("TICKET_TIMEOUT_SECONDS", 10)) * time.Second,
		DBDSN:           os.Getenv("DB_DSN"),
		MQTTBrokerURL:   os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:    getenvDefault("MQTT_CLIENT_ID", "incident-server"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getenvDefault("MQTT_TOPIC_PREFIX", "incidentdesk"),
		SessionIdleTTL:  time.Duration(getenvIntDefault("SESSION_IDLE_TTL_SECONDS", 1800)) * time.Second,
		MessagesFile:    os.Getenv("MESSAGES_FILE"),
	}

	if cfg.ElasticHost == "" {
		return IncidentServerConfig{}, fmt.Errorf("ELASTIC_HOST is required")
	}
	if cfg.AirtableBaseID == "" || cfg.AirtableAPIKey == "" {
		return IncidentServerConfig{}, fmt.Errorf("AIRTABLE_BASE_ID and AIRTABLE_API_KEY are required")
	}
	if cfg.KBRetryUnit < 0 {
		return IncidentServerConfig{}, fmt.Errorf("KB_RETRY_UNIT_MS must not be negative")
	}

	return cfg, nil
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}
