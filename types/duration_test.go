package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DurationStrings(t *testing.T) {
	config := DefaultConfig()
	err := json.Unmarshal([]byte(`{
		"httpTimeout": "10s",
		"cacheTtl": "90s",
		"confirm": {"interval": "500ms", "maxInterval": "1m", "maxDuration": "2h", "multiplier": 2}
	}`), config)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, config.HTTPTimeout)
	assert.Equal(t, 90*time.Second, config.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, config.Confirm.Interval)
	assert.Equal(t, time.Minute, config.Confirm.MaxInterval)
	assert.Equal(t, 2*time.Hour, config.Confirm.MaxDuration)
	assert.Equal(t, 2.0, config.Confirm.Multiplier)
	assert.Equal(t, "info", config.LogLevel)
}

func TestConfig_DurationNanoseconds(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, json.Unmarshal([]byte(`{"confirm": {"interval": 3000000000}}`), config))
	assert.Equal(t, 3*time.Second, config.Confirm.Interval)
}

func TestConfig_AbsentDurationsKeepDefaults(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, json.Unmarshal([]byte(`{"confirm": {"maxAttempts": 4}}`), config))

	assert.Equal(t, 3*time.Second, config.Confirm.Interval)
	assert.Equal(t, 4, config.Confirm.MaxAttempts)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout)
	assert.Equal(t, time.Minute, config.CacheTTL)
}

func TestConfig_InvalidDuration(t *testing.T) {
	for _, input := range []string{
		`{"httpTimeout": "soon"}`,
		`{"confirm": {"interval": true}}`,
	} {
		assert.Error(t, json.Unmarshal([]byte(input), DefaultConfig()), input)
	}
}

func TestDuration_MarshalsAsString(t *testing.T) {
	out, err := json.Marshal(Duration(1500 * time.Millisecond))
	require.NoError(t, err)
	assert.JSONEq(t, `"1.5s"`, string(out))
}
