// Package cron implements a scheduler channel: configured jobs fire on a
// cron schedule and inject messages into their own cron-typed sessions.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// ChannelID is the identifier for the scheduler channel.
const ChannelID = "cron"

// Job is one scheduled message. Name doubles as the session chat id, so
// every job carries its own conversation history.
type Job struct {
	Name     string
	Schedule string // standard 5-field cron expression
	Message  string
}

// Channel implements domain.Channel on a cron scheduler.
type Channel struct {
	jobs []Job
	log  *logging.Logger

	mu      sync.Mutex
	handler func(msg domain.InboundMessage)
	runner  *cron.Cron
}

// New creates a cron channel from job definitions.
func New(jobs []Job, log *logging.Logger) *Channel {
	return &Channel{jobs: jobs, log: log.Sub("cron")}
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start validates all schedules and begins firing jobs.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != nil {
		return fmt.Errorf("cron channel already started")
	}

	runner := cron.New()
	for _, job := range c.jobs {
		job := job
		if job.Name == "" {
			return fmt.Errorf("cron job without a name")
		}
		id, err := runner.AddFunc(job.Schedule, func() { c.fire(job) })
		if err != nil {
			return fmt.Errorf("cron job %s: bad schedule %q: %w", job.Name, job.Schedule, err)
		}
		c.log.Info().Str("job", job.Name).Str("schedule", job.Schedule).
			Int("entry", int(id)).Msg("cron job scheduled")
	}
	runner.Start()
	c.runner = runner
	return nil
}

func (c *Channel) fire(job Job) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}

	c.log.Info().Str("job", job.Name).Msg("cron job fired")
	handler(domain.InboundMessage{
		ID:        uuid.New().String(),
		ChannelID: ChannelID,
		From:      "cron",
		ChatID:    job.Name,
		ChatType:  domain.ChatTypeCron,
		Body:      job.Message,
		Timestamp: time.Now(),
	})
}

// Stop halts the scheduler, waiting for running jobs up to the context
// deadline.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.runner
	c.runner = nil
	c.mu.Unlock()
	if runner == nil {
		return nil
	}

	done := runner.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Send logs the agent's reply; cron sessions have no delivery target.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	c.log.Info().Str("job", msg.To).Str("reply", msg.Body).Msg("cron job reply")
	return nil
}
