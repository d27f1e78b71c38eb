package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T08:00:00.123456", time.Date(2024, 5, 1, 8, 0, 0, 123456000, time.UTC)},
		{"2024-05-01T08:00:00", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-05-01 08:00:00.5", time.Date(2024, 5, 1, 8, 0, 0, 500000000, time.UTC)},
		{"2024-05-01T10:00:00+02:00", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := domain.ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestPromptRecordRoundTripsAfterZoneLessRead(t *testing.T) {
	var rec domain.PromptRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id": 2, "name": "n", "template": "t", "created_at": "2024-05-01T08:00:00", "updated_at": null}`), &rec))
	assert.Equal(t, 2, rec.ID)
	assert.True(t, rec.UpdatedAt.IsZero())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created_at":"2024-05-01T08:00:00Z"`)

	var snap domain.VersionSnapshot
	assert.Error(t, json.Unmarshal([]byte(`{"version": 1, "created_at": "soon"}`), &snap))
}
