package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railzway-console/shared/database/models"
)

func TestEncodeStatusMissingMarker(t *testing.T) {
	payload, err := EncodeStatus(42, nil)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "missing", decoded["status"])
	assert.Equal(t, "42", decoded["org_id"])
}

func TestEncodeStatusStringifiesIDs(t *testing.T) {
	inst := models.NewInstance(9007199254740994, models.TierFreeTrial, "v1.6.0")
	inst.ID = 9007199254740993
	inst.JobID = "job-1"
	payload, err := EncodeStatus(inst.OrgID, inst)
	require.NoError(t, err)

	// IDs above 2^53 must survive JavaScript consumers, so they go out as strings.
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "9007199254740993", decoded["id"])
	assert.Equal(t, "9007199254740994", decoded["org_id"])
	assert.Equal(t, models.StatusInit, decoded["status"])
}

func TestEncodeStatusOmitsEmptyError(t *testing.T) {
	inst := models.NewInstance(2, models.TierPro, "v1.6.0")
	inst.ID = 1
	payload, err := EncodeStatus(inst.OrgID, inst)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "last_error")

	inst.MarkProvisionFailed("allocation failed")
	payload, err = EncodeStatus(inst.OrgID, inst)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "allocation failed")
}
