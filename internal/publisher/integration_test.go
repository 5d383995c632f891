//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alexmgee/patron-hub/internal/config"
	"github.com/alexmgee/patron-hub/internal/domain"
)

type PublisherIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
	cfg       config.RabbitMQConfig
}

func (s *PublisherIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	s.amqpURL, err = container.AmqpURL(s.ctx)
	s.Require().NoError(err)
}

func (s *PublisherIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest gives every test its own exchange and queue.
func (s *PublisherIntegrationSuite) SetupTest() {
	name := strings.ToLower(strings.ReplaceAll(s.T().Name(), "/", "-"))
	s.cfg = config.RabbitMQConfig{
		URL:        s.amqpURL,
		Exchange:   "ex-" + name,
		RoutingKey: "rk-" + name,
		QueueName:  "q-" + name,
	}
}

func TestPublisherIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PublisherIntegrationSuite))
}

func (s *PublisherIntegrationSuite) TestConnectAndClose() {
	pub, err := NewRabbitMQ(s.cfg, s.logger)
	s.Require().NoError(err)
	s.NoError(pub.Close())
	s.NoError(pub.Close())
}

func (s *PublisherIntegrationSuite) TestPublish_ConfirmedEvents() {
	pub, err := NewRabbitMQ(s.cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	actions := []string{"created", "updated", "archived"}
	for _, action := range actions {
		s.Require().NoError(pub.Publish(s.ctx, domain.ContentEvent{
			Action:         action,
			ContentItemID:  42,
			SubscriptionID: 7,
			ExternalID:     "123",
			Title:          "Episode 1",
		}))
	}

	for _, action := range actions {
		msg := s.next()
		s.Equal("application/json", msg.ContentType)
		s.Equal(action, msg.Type)
		s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

		var event domain.ContentEvent
		s.Require().NoError(json.Unmarshal(msg.Body, &event))
		s.Equal(action, event.Action)
		s.Equal(int64(42), event.ContentItemID)
		s.Equal(int64(7), event.SubscriptionID)
		s.Equal("Episode 1", event.Title)
		s.False(event.Timestamp.IsZero())
	}
}

func (s *PublisherIntegrationSuite) TestPublish_ReconnectsAfterDrop() {
	pub, err := NewRabbitMQ(s.cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	s.Require().NoError(pub.conn.Close())

	err = pub.Publish(s.ctx, domain.ContentEvent{Action: "archived", ContentItemID: 9})
	s.Require().NoError(err)

	var event domain.ContentEvent
	s.Require().NoError(json.Unmarshal(s.next().Body, &event))
	s.Equal(int64(9), event.ContentItemID)
}

// next polls the test queue until a message arrives.
func (s *PublisherIntegrationSuite) next() amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		msg, ok, err := ch.Get(s.cfg.QueueName, true)
		s.Require().NoError(err)
		if ok {
			return msg
		}
		if time.Now().After(deadline) {
			s.FailNow("no message on " + s.cfg.QueueName)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
