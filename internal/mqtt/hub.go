package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	paho "github.com/eclipse/paho.mqtt.golang"

	"incidentdesk/internal/domain"
)

type HubConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// SessionCloser abandons a conversation on request from another service.
type SessionCloser interface {
	Abandon(id string) error
}

// Hub publishes closed incident reports and listens for abandon requests.
type Hub struct {
	cfg    HubConfig
	client paho.Client
	closer SessionCloser
	logger *slog.Logger
}

func NewHub(cfg HubConfig, closer SessionCloser, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		closer: closer,
		logger: logger,
	}
}

func (h *Hub) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	if h.closer != nil {
		if token := h.client.Subscribe(TopicSessionAbandon(h.cfg.TopicPrefix), 1, h.handleAbandon); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) handleAbandon(_ paho.Client, msg paho.Message) {
	h.abandon(msg.Topic())
}

func (h *Hub) abandon(topic string) {
	sessionID, err := ParseSessionID(topic, h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid abandon topic", "topic", topic, "error", err)
		return
	}
	if err := h.closer.Abandon(sessionID); err != nil {
		h.logger.Warn("abandon session failed", "session_id", sessionID, "error", err)
		return
	}
	h.logger.Info("session abandoned via mqtt", "session_id", sessionID)
}

// PublishIncident sends event to {prefix}/incident/{outcome}/{incidentID}.
func (h *Hub) PublishIncident(ctx context.Context, event domain.IncidentEvent) error {
	if h.client == nil {
		return errors.New("mqtt hub not started")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := TopicIncident(h.cfg.TopicPrefix, string(event.Outcome), event.IncidentID)
	token := h.client.Publish(topic, 1, false, body)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	}
}
