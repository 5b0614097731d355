package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	wallethopper "github.com/tkeith/wallet-hopper-2"
	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/pipeline"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

var (
	configPath  string
	rpcURL      string
	privateKey  string
	logLevel    string
	metricsAddr string

	hopper *wallethopper.Hopper
	zapLog *logger.ZapLogger
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wallethopper",
		Short:        "Pay recipients the way they asked to be paid",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			zapLog, err = logger.NewZapLogger(config.LogLevel)
			if err != nil {
				return err
			}

			if rpcURL == "" {
				rpcURL = os.Getenv("WALLETHOPPER_RPC_URL")
			}
			if privateKey == "" {
				privateKey = os.Getenv("WALLETHOPPER_PRIVATE_KEY")
			}
			if rpcURL == "" || privateKey == "" {
				return fmt.Errorf("wallet required: set --rpc and --key (or WALLETHOPPER_RPC_URL / WALLETHOPPER_PRIVATE_KEY)")
			}

			if metricsAddr != "" {
				config.EnableMetrics = true
			}

			hopper, err = wallethopper.New(config,
				wallethopper.WithEVMWallet(rpcURL, privateKey),
				wallethopper.WithLogger(zapLog),
				wallethopper.WithEventSink(printEvent(cmd.ErrOrStderr())),
			)
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				serveMetrics(metricsAddr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if hopper != nil {
				hopper.Close()
			}
			if zapLog != nil {
				_ = zapLog.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "JSON config file (default built-in settings)")
	root.PersistentFlags().StringVar(&rpcURL, "rpc", "", "JSON-RPC endpoint of the payer's chain")
	root.PersistentFlags().StringVar(&privateKey, "key", "", "hex private key of the payer wallet")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(checkCmd(), sendCmd(), draftCmd(), publishCmd())
	return root
}

func loadConfig() (*types.Config, error) {
	config := types.DefaultConfig()
	if configPath != "" {
		loaded, err := utils.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if err := utils.ConfigFromEnv(config, os.Getenv); err != nil {
		return nil, err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	return config, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("metrics server stopped", map[string]any{"error": err})
		}
	}()
}

func printEvent(w io.Writer) pipeline.EventSink {
	return func(e pipeline.Event) {
		line := fmt.Sprintf("[%s/%s] %s: %s", e.Pipeline, e.Stage, e.State, e.Message)
		if e.TxHash != (common.Hash{}) {
			line += " " + e.TxHash.Hex()
		}
		fmt.Fprintln(w, line)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
