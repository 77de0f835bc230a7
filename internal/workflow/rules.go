package workflow

import (
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

// rule is the review step owned by one tier.
type rule struct {
	awaiting  model.Status
	approveTo model.Status
	rejectTo  model.Status
	stamp     []store.TimestampField
	clear     []store.TimestampField
	sortBy    store.SortField
}

var rules = map[model.Tier]rule{
	model.TierVillage: {
		awaiting:  model.StatusPending,
		approveTo: model.StatusApproved,
		rejectTo:  model.StatusRejected,
		sortBy:    store.SortCreatedAt,
	},
	model.TierCell: {
		awaiting:  model.StatusApproved,
		approveTo: model.StatusCellApproved,
		rejectTo:  model.StatusPending,
		stamp:     []store.TimestampField{store.CellApprovedAt},
		sortBy:    store.SortUpdatedAt,
	},
	// Rejecting at sector sends the household back to the cell, so the cell
	// approval stamp goes with it.
	model.TierSector: {
		awaiting:  model.StatusCellApproved,
		approveTo: model.StatusSectorApproved,
		rejectTo:  model.StatusApproved,
		stamp:     []store.TimestampField{store.SectorApprovedAt},
		clear:     []store.TimestampField{store.SectorApprovedAt, store.CellApprovedAt},
		sortBy:    store.SortCellApprovedAt,
	},
}

// ReviewTiers lists the tiers that review households, in review order.
var ReviewTiers = []model.Tier{model.TierVillage, model.TierCell, model.TierSector}
