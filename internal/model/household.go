package model

import "time"

// Status is the approval state of a household submission.
type Status string

const (
	StatusPending        Status = "pending"
	StatusApproved       Status = "approved"
	StatusCellApproved   Status = "cell_approved"
	StatusSectorApproved Status = "sector_approved"
	StatusRejected       Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCellApproved, StatusSectorApproved, StatusRejected:
		return true
	}
	return false
}

type Household struct {
	ID               int64      `json:"id"`
	IsiboID          int64      `json:"isibo_id"`
	SubmittedBy      int64      `json:"submitted_by"`
	Head             string     `json:"head"`
	Members          int        `json:"members"`
	Location         string     `json:"location"`
	Status           Status     `json:"status"`
	CellApprovedAt   *time.Time `json:"cell_approved_at"`
	SectorApprovedAt *time.Time `json:"sector_approved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
