package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status string
		class  StatusClass
		label  string
	}{
		{"missing", ClassMissing, "Not Deployed"},
		{"init", ClassProvisioning, "Provisioning"},
		{"provisioning", ClassProvisioning, "Provisioning"},
		{"pending", ClassProvisioning, "Provisioning"},
		{"queued", ClassProvisioning, "Provisioning"},
		{"running", ClassRunning, "Running"},
		{"complete", ClassRunning, "Running"},
		{"active", ClassRunning, "Running"},
		{"stopped", ClassStopped, "Stopped"},
		{"provision_failed", ClassFailed, "Failed"},
		{"upgrading", ClassUnclassified, "UPGRADING"},
		{"downgrade_scheduled", ClassUnclassified, "DOWNGRADE_SCHEDULED"},
		{"weird_state", ClassUnclassified, "WEIRD_STATE"},
	}

	for _, tt := range tests {
		class, label := Classify(tt.status)
		assert.Equal(t, tt.class, class, "status %q", tt.status)
		assert.Equal(t, tt.label, label, "status %q", tt.status)
	}
}

func TestClassifyNormalizesInput(t *testing.T) {
	class, label := Classify("  Running ")
	assert.Equal(t, ClassRunning, class)
	assert.Equal(t, "Running", label)
}

func TestTransitioning(t *testing.T) {
	assert.True(t, Transitioning("provisioning", false))
	assert.True(t, Transitioning("init", false))
	assert.True(t, Transitioning("pending", false))
	assert.True(t, Transitioning("upgrading", false))
	assert.False(t, Transitioning("running", false))
	assert.False(t, Transitioning("stopped", false))
	assert.False(t, Transitioning("provision_failed", false))

	// An in-flight action overlays any status.
	assert.True(t, Transitioning("running", true))
	assert.True(t, Transitioning("stopped", true))
}
