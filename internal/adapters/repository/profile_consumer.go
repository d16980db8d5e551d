package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
	"github.com/rabbitmq/amqp091-go"
)

// ProfileCreationRequest represents a message from RabbitMQ for creating
// a user profile. This matches the message format sent by the identity-service:
// { "user_id": "uuid-string", "birthdate": "2000-03-15", "sex": "female" }
type ProfileCreationRequest struct {
	UserID    string `json:"user_id"`   // User ID (UUID as string from identity service)
	Birthdate string `json:"birthdate"` // ISO date, YYYY-MM-DD
	Sex       string `json:"sex"`       // "male" or "female"
}

// ProfileConsumer consumes messages from RabbitMQ for automatic profile
// creation on user registration. Runs in background as a goroutine.
// Duplicate prevention checks ensure only one consumer per pod instance
// (for multi-replica deployments, RabbitMQ distributes messages across replicas).
type ProfileConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	profileService ports.ProfileService
	connMutex      sync.RWMutex
	reconnectCh    chan bool
	stopReconnect  chan bool
	maxRetries     int
	retryDelay     time.Duration
	consumingCtx   context.Context
	consumingMutex sync.Mutex
	isConsuming    bool
}

// NewProfileConsumer creates a new RabbitMQ consumer for profile creation
func NewProfileConsumer(rabbitMQURL string, queueName string, profileService ports.ProfileService) (*ProfileConsumer, error) {
	if queueName == "" {
		queueName = "profile.creation.requests"
	}

	consumer := &ProfileConsumer{
		queueName:      queueName,
		profileService: profileService,
		maxRetries:     3,
		retryDelay:     1 * time.Second,
		reconnectCh:    make(chan bool, 1),
		stopReconnect:  make(chan bool),
	}

	// Connect to RabbitMQ
	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Start reconnection handler
	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

// connect establishes connection to RabbitMQ
func (c *ProfileConsumer) connect(rabbitMQURL string) error {
	var err error
	for i := 0; i < c.maxRetries; i++ {
		c.conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		return err
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return err
	}

	// Declare queue (idempotent)
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)

	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	log.Println("Profile consumer connected to RabbitMQ successfully")
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (c *ProfileConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			c.connMutex.Lock()
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
				time.Sleep(5 * time.Second)
				c.reconnectCh <- true
			} else {
				// Restart consuming after reconnection using the original context
				c.consumingMutex.Lock()
				if c.consumingCtx != nil && c.consumingCtx.Err() == nil {
					if !c.isConsuming {
						go c.StartConsuming(c.consumingCtx)
					}
				}
				c.consumingMutex.Unlock()
			}
		case <-c.stopReconnect:
			return
		}
	}
}

// StartConsuming starts consuming messages from the queue in a background
// goroutine. Called from main.go and runs asynchronously.
func (c *ProfileConsumer) StartConsuming(ctx context.Context) error {
	// Prevent multiple consumers from starting in the same pod instance
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		log.Println("Profile consumer is already running in this pod, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	// Process one message at a time
	err := channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	// Register consumer with a unique consumer tag to identify this instance
	consumerTag := fmt.Sprintf("profile-consumer-%d", time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack (manual ack - we acknowledge only after successful creation)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("Profile consumer started (tag: %s), waiting for messages on queue: %s", consumerTag, c.queueName)

	go func() {
		defer func() {
			c.consumingMutex.Lock()
			c.isConsuming = false
			c.consumingMutex.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				log.Println("Profile consumer context cancelled")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Profile consumer channel closed, attempting reconnection...")
					c.reconnectCh <- true
					return
				}

				// Sequential processing, ack happens inside processMessage
				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// processMessage processes a single message from RabbitMQ.
// The message is acknowledged ONLY after the profile is stored.
// If the store fails, the message is nacked and requeued for retry.
func (c *ProfileConsumer) processMessage(ctx context.Context, msg amqp091.Delivery) {
	var req ProfileCreationRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		log.Printf("Failed to unmarshal profile creation request: %v", err)
		// Invalid message format - reject and don't requeue
		msg.Nack(false, false)
		return
	}

	log.Printf("Received profile creation request: user_id=%s, birthdate=%s, sex=%s",
		req.UserID, req.Birthdate, req.Sex)

	if req.UserID == "" {
		log.Printf("Invalid profile creation request: user_id is required")
		msg.Nack(false, false)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		log.Printf("Invalid profile creation request: user_id is not a valid UUID: %v", err)
		msg.Nack(false, false)
		return
	}

	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		log.Printf("Invalid profile creation request: birthdate must be YYYY-MM-DD: %v", err)
		msg.Nack(false, false)
		return
	}

	sex := domain.Sex(req.Sex)
	if !domain.IsValidSex(sex) {
		log.Printf("Invalid profile creation request: unknown sex %q", req.Sex)
		msg.Nack(false, false)
		return
	}

	// Registration messages never carry pregnancy or lactation flags;
	// users set those through the profile endpoint afterwards
	profile, err := c.profileService.CreateProfile(ctx, userID, birthdate, sex, false, false)
	if err != nil {
		log.Printf("Failed to create profile from RabbitMQ message: %v", err)
		// Store failed - reject and requeue for retry
		msg.Nack(false, true)
		return
	}

	log.Printf("Successfully created profile from RabbitMQ: user_id=%s, sex=%s",
		profile.UserID, profile.Sex)

	// Acknowledge ONLY after the profile is stored. If ack fails the
	// message is redelivered, which is safe (at-least-once delivery).
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to acknowledge message after profile creation: %v", err)
	}
}

// Close closes the RabbitMQ connection and stops consuming.
// The consuming context is cancelled by main.go during graceful shutdown.
func (c *ProfileConsumer) Close() error {
	close(c.stopReconnect)

	c.consumingMutex.Lock()
	c.isConsuming = false
	c.consumingMutex.Unlock()

	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			log.Printf("Error closing RabbitMQ connection: %v", err)
		}
	}

	log.Println("Profile consumer closed")
	return nil
}
