package main

import (
	"os"

	"github.com/tkeith/wallet-hopper-2/cmd/wallethopper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
