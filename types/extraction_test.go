package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   ConfidenceTier
	}{
		{1.0, TierHigh},
		{0.8, TierHigh},
		{0.79999, TierMedium},
		{0.5, TierMedium},
		{0.49999, TierLow},
		{0.0, TierLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TierFor(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestFieldSource_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    FieldSource
		to      FieldSource
		allowed bool
	}{
		{SourceExtracted, SourceAIClassified, true},
		{SourceExtracted, SourceUserCorrected, true},
		{SourceAIClassified, SourceUserCorrected, true},
		{SourceAIClassified, SourceExtracted, false},
		{SourceUserCorrected, SourceExtracted, false},
		{SourceUserCorrected, SourceAIClassified, false},
		{SourceExtracted, SourceExtracted, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestFieldSource_CanRevertTo(t *testing.T) {
	assert.True(t, SourceUserCorrected.CanRevertTo(SourceExtracted))
	assert.True(t, SourceUserCorrected.CanRevertTo(SourceAIClassified))
	assert.False(t, SourceUserCorrected.CanRevertTo(SourceUserCorrected))
	assert.False(t, SourceAIClassified.CanRevertTo(SourceExtracted))
	assert.False(t, SourceExtracted.CanRevertTo(SourceExtracted))
}

func TestExtraction_FieldByName(t *testing.T) {
	e := &Extraction{
		Fields: []ExtractedField{
			{FieldName: "farmName", Value: "Ferme des Lilas"},
			{FieldName: "totalHectares", Value: "50"},
		},
	}

	f := e.FieldByName("totalHectares")
	assert.NotNil(t, f)
	assert.Equal(t, "50", f.Value)

	// Returned pointer aliases the slice entry so review mutations stick.
	f.Accepted = true
	assert.True(t, e.Fields[1].Accepted)

	assert.Nil(t, e.FieldByName("missing"))
}

func TestEventValidate(t *testing.T) {
	ev := Event{BaseEvent: BaseEvent{ID: "1", Type: EventTypePipelineProgress, RunID: "run-1"}}
	assert.Error(t, ev.Validate(), "missing timestamp should fail")

	ev.Timestamp = time.Now()
	assert.NoError(t, ev.Validate())

	ev.RunID = ""
	assert.Error(t, ev.Validate(), "missing run ID should fail")
}
