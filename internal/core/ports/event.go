package ports

import (
	"context"
	"time"
)

type BloodRequestCreatedEvent struct {
	RequestID  string    `json:"request_id"`
	BloodGroup string    `json:"blood_group"`
	Location   string    `json:"location"`
	Urgency    string    `json:"urgency"`
	CreatedAt  time.Time `json:"created_at"`
}

type RequestEventPublisher interface {
	PublishRequestCreated(ctx context.Context, evt BloodRequestCreatedEvent) error
}
