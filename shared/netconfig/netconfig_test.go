package netconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchemaForKey(t *testing.T) {
	tests := []struct {
		key  string
		want Schema
	}{
		{"0", SchemaPosition},
		{"1", SchemaRotation},
		{"position", SchemaPosition},
		{"rotation", SchemaRotation},
		{"scale", SchemaScale},
		{"2", SchemaNone},
		{"color", SchemaNone},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemaForKey(tt.key))
		})
	}
}

func TestSyncInterval(t *testing.T) {
	assert.Equal(t, time.Second/15, SyncInterval(15))
	assert.Equal(t, time.Second/DefaultUpdatesPerSecond, SyncInterval(0))
	assert.Equal(t, 100*time.Millisecond, SyncInterval(10))
}

func TestSyncModeValid(t *testing.T) {
	assert.True(t, SyncModeLegacy.Valid())
	assert.True(t, SyncModeDelta.Valid())
	assert.False(t, SyncMode("").Valid())
}
