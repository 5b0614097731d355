package clients

import (
	"errors"
	"strings"

	hoptypes "github.com/tkeith/wallet-hopper-2/types"
)

// rejection markers returned by wallets and signers when the user declines
var rejectionMarkers = []string{
	"user rejected",
	"user denied",
	"rejected by user",
	"request rejected",
}

// ErrActorStopped is returned by Submit after the actor has been stopped.
var ErrActorStopped = errors.New("wallet actor stopped")

// classifySubmitError maps a wallet submission failure onto USER_REJECTED or
// SUBMISSION_REJECTED. Errors that already carry a code pass through.
func classifySubmitError(err error) error {
	if err == nil {
		return nil
	}
	var he *hoptypes.HopperError
	if errors.As(err, &he) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return hoptypes.NewError(hoptypes.ErrUserRejected, "transaction rejected by user", err)
		}
	}
	return hoptypes.NewError(hoptypes.ErrSubmissionRejected, "transaction submission failed", err)
}
