package types

import (
	"context"
	"errors"
	"time"
)

type (
	WebhookPayload struct {
		Username  string  `json:"username,omitempty"`
		AvatarURL string  `json:"avatar_url,omitempty"`
		Content   string  `json:"content,omitempty"`
		Embeds    []Embed `json:"embeds,omitempty"`
	}

	Embed struct {
		Title       string       `json:"title,omitempty"`
		Description string       `json:"description,omitempty"`
		Color       int          `json:"color,omitempty"`
		Timestamp   string       `json:"timestamp,omitempty"`
		Fields      []EmbedField `json:"fields,omitempty"`
		Footer      *EmbedFooter `json:"footer,omitempty"`
	}

	EmbedField struct {
		Name   string `json:"name"`
		Value  string `json:"value"`
		Inline bool   `json:"inline,omitempty"`
	}

	EmbedFooter struct {
		Text    string `json:"text,omitempty"`
		IconURL string `json:"icon_url,omitempty"`
	}

	DeliveryStatus string

	DeliveryOutcome struct {
		Status     DeliveryStatus
		Attempts   int
		StatusCode int
		Err        error
	}

	Notifier interface {
		BuildPayload(event ContainerEvent) WebhookPayload

		BuildStartupPayload() WebhookPayload

		BuildShutdownPayload() WebhookPayload

		Deliver(ctx context.Context, payload WebhookPayload) DeliveryOutcome
	}

	// Notification is the journal row persisted for every event that survived
	// deduplication, whatever the delivery outcome was.
	Notification struct {
		ID            string `gorm:"primaryKey"`
		Fingerprint   string `gorm:"index"`
		Kind          ContainerEventKind
		ContainerID   string
		ContainerName string
		ServiceName   string
		NodeName      string
		Outcome       DeliveryStatus
		Attempts      int
		StatusCode    int
		OccurredAt    time.Time
		DeliveredAt   *time.Time
		CreatedAt     time.Time
	}
)

const (
	DeliveryStatusDelivered       DeliveryStatus = "delivered"
	DeliveryStatusFailedPermanent DeliveryStatus = "failed_permanent"
	DeliveryStatusFailedExhausted DeliveryStatus = "failed_exhausted"
)

var (
	ErrDeliveryPermanent = errors.New("webhook rejected payload")
	ErrDeliveryExhausted = errors.New("delivery attempts exhausted")
)

func (o DeliveryOutcome) Delivered() bool {
	return o.Status == DeliveryStatusDelivered
}
