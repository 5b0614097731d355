package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkeith/wallet-hopper-2/pipeline"
	"github.com/tkeith/wallet-hopper-2/types"
)

func TestIntentFromArgs(t *testing.T) {
	intent := intentFromArgs([]string{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "USDC", "12.5"})
	assert.Equal(t, types.PaymentIntent{
		DestinationAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		Asset:              "USDC",
		Amount:             "12.5",
	}, intent)
}

func TestReadDocument(t *testing.T) {
	text, err := readDocument(strings.NewReader(`{"a":1}`), "-")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b":2}`), 0o600))
	text, err = readDocument(nil, path)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, text)

	_, err = readDocument(nil, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lookupUrl":"https://prefs.example/api/wallet-meta","quoteUrl":"https://api.1inch.io/v5.2","logLevel":"warn"}`), 0o600))

	configPath, logLevel = path, "debug"
	t.Cleanup(func() { configPath, logLevel = "", "" })

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://prefs.example/api/wallet-meta", config.LookupURL)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf)(pipeline.Event{Pipeline: "swap", Stage: pipeline.StageApprove, State: types.TxSubmitting, Message: "approve USDC"})
	assert.Equal(t, "[swap/approve] submitting: approve USDC\n", buf.String())
}

func TestWalletRequired(t *testing.T) {
	t.Setenv("WALLETHOPPER_RPC_URL", "")
	t.Setenv("WALLETHOPPER_PRIVATE_KEY", "")

	root := newRootCmd()
	root.SetArgs([]string{"draft"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet required")
}
