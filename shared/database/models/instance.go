package models

import (
	"time"
)

// Subscription tiers, ordered by rank.
const (
	TierFreeTrial  = "FREE_TRIAL"
	TierStarter    = "STARTER"
	TierPro        = "PRO"
	TierTeam       = "TEAM"
	TierEnterprise = "ENTERPRISE"
)

var TierRank = map[string]int{
	TierFreeTrial:  0,
	TierStarter:    1,
	TierPro:        2,
	TierTeam:       3,
	TierEnterprise: 4,
}

// Instance lifecycle statuses.
const (
	StatusInit               = "init"
	StatusProvisioning       = "provisioning"
	StatusActive             = "active"
	StatusProvisionFailed    = "provision_failed"
	StatusRunning            = "running"
	StatusStopped            = "stopped"
	StatusUpgrading          = "upgrading"
	StatusDowngradeScheduled = "downgrade_scheduled"
	StatusTerminated         = "terminated"
)

type Instance struct {
	ID             int64      `json:"id,string" gorm:"primaryKey"`
	OrgID          int64      `json:"org_id,string" gorm:"uniqueIndex;not null"`
	JobID          string     `json:"job_id" gorm:"size:200"`
	DesiredVersion string     `json:"desired_version" gorm:"size:50"`
	CurrentVersion string     `json:"current_version" gorm:"size:50"`
	Status         string     `json:"status" gorm:"size:30;index;default:'init'"`
	Tier           string     `json:"tier" gorm:"size:30;default:'FREE_TRIAL'"`
	PlanID         string     `json:"plan_id" gorm:"size:100"`
	PriceID        string     `json:"price_id" gorm:"size:100"`
	LaunchURL      string     `json:"launch_url"`
	LastError      string     `json:"last_error,omitempty"`
	StoppedAt      *time.Time `json:"stopped_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewInstance creates an instance in init state for the given org.
func NewInstance(orgID int64, tier, version string) *Instance {
	now := time.Now().UTC()
	return &Instance{
		OrgID:          orgID,
		Tier:           tier,
		DesiredVersion: version,
		Status:         StatusInit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// CanUpgrade reports whether target is a strictly higher tier.
func (i *Instance) CanUpgrade(target string) bool {
	return TierRank[target] > TierRank[i.Tier]
}

// CanDowngrade reports whether target is a strictly lower tier.
func (i *Instance) CanDowngrade(target string) bool {
	return TierRank[target] < TierRank[i.Tier]
}

// CanStart reports whether a start action is valid from the current status.
func (i *Instance) CanStart() bool {
	return i.Status == StatusStopped
}

// CanStop reports whether a stop action is valid from the current status.
func (i *Instance) CanStop() bool {
	return i.Status == StatusRunning || i.Status == StatusActive
}

// MarkProvisioning transitions the instance to provisioning and clears the last error.
func (i *Instance) MarkProvisioning() {
	i.Status = StatusProvisioning
	i.LastError = ""
	i.UpdatedAt = time.Now().UTC()
}

// MarkRunning transitions the instance to running with the observed version.
func (i *Instance) MarkRunning(currentVersion string) {
	i.Status = StatusRunning
	i.CurrentVersion = currentVersion
	i.LastError = ""
	i.StoppedAt = nil
	i.UpdatedAt = time.Now().UTC()
}

// MarkStopped transitions the instance to stopped.
func (i *Instance) MarkStopped() {
	now := time.Now().UTC()
	i.Status = StatusStopped
	i.StoppedAt = &now
	i.UpdatedAt = now
}

// MarkProvisionFailed transitions the instance to provision_failed.
func (i *Instance) MarkProvisionFailed(errMsg string) {
	i.Status = StatusProvisionFailed
	i.LastError = errMsg
	i.UpdatedAt = time.Now().UTC()
}

// MarkUpgrading moves the instance to the target tier and upgrading status.
func (i *Instance) MarkUpgrading(targetTier string) {
	i.Tier = targetTier
	i.Status = StatusUpgrading
	i.UpdatedAt = time.Now().UTC()
}

// ScheduleDowngrade marks the instance for downgrade at period end.
func (i *Instance) ScheduleDowngrade() {
	i.Status = StatusDowngradeScheduled
	i.UpdatedAt = time.Now().UTC()
}
