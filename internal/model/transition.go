package model

import "time"

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

// Transition is one entry in a household's append-only status history.
type Transition struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	ActorID     int64     `json:"actor_id"`
	Tier        Tier      `json:"tier"`
	Action      Action    `json:"action"`
	FromStatus  Status    `json:"from_status"`
	ToStatus    Status    `json:"to_status"`
	CreatedAt   time.Time `json:"created_at"`
}
