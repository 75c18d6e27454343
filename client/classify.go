package client

import "strings"

// StatusClass is the console-facing classification of an instance status
type StatusClass string

const (
	ClassMissing      StatusClass = "missing"
	ClassProvisioning StatusClass = "provisioning"
	ClassRunning      StatusClass = "running"
	ClassStopped      StatusClass = "stopped"
	ClassFailed       StatusClass = "failed"
	ClassUnclassified StatusClass = "unclassified"
)

// Classify maps a raw instance status onto its display class and label.
// Unknown statuses keep their upper-cased raw value as the label.
func Classify(status string) (StatusClass, string) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "missing":
		return ClassMissing, "Not Deployed"
	case "init", "provisioning", "pending", "queued":
		return ClassProvisioning, "Provisioning"
	case "running", "complete", "active":
		return ClassRunning, "Running"
	case "stopped":
		return ClassStopped, "Stopped"
	case "provision_failed":
		return ClassFailed, "Failed"
	default:
		return ClassUnclassified, strings.ToUpper(strings.TrimSpace(status))
	}
}

// Transitioning reports whether the status should show a busy overlay.
// Advisory only; it is derived on read and never stored.
func Transitioning(status string, actionInFlight bool) bool {
	if actionInFlight {
		return true
	}
	normalized := strings.ToLower(strings.TrimSpace(status))
	if normalized == "upgrading" {
		return true
	}
	class, _ := Classify(normalized)
	return class == ClassProvisioning
}
