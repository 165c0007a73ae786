package trace

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageRecord_MarshalCompleted(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Completed(StageIntentParsing, start, start.Add(12*time.Millisecond), IntentPayload{
		Strategy:   "rule",
		Conditions: 2,
		Confidence: 1.0,
	})

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "intent_parsing", got["stage"])
	assert.Equal(t, "completed", got["status"])
	assert.EqualValues(t, 12, got["processing_time_ms"])
	assert.Equal(t, "2024-01-02T03:04:05Z", got["timestamp"])
	assert.NotContains(t, got, "error")

	payload := got["payload"].(map[string]any)
	assert.Equal(t, "rule", payload["strategy"])
	assert.EqualValues(t, 2, payload["conditions"])
}

func TestStageRecord_MarshalFailed(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Failed(StageValidation, start, start.Add(time.Millisecond), errors.New("boom"))

	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "failed", got["status"])
	assert.Equal(t, "boom", got["error"])
	assert.NotContains(t, got, "payload")
}

func TestPayloadVariantsCoverEveryStage(t *testing.T) {
	payloads := map[Stage]Payload{
		StageIntentParsing:   IntentPayload{},
		StageDataMapping:     MappingPayload{},
		StageQueryGeneration: QueryPayload{},
		StageValidation:      ValidationPayload{},
		StageActivation:      ActivationPayload{},
	}
	for stage, payload := range payloads {
		rec := Completed(stage, time.Now(), time.Now(), payload)
		_, err := json.Marshal(rec)
		assert.NoError(t, err, stage)
	}
}
