package types

import "strings"

// Chain names used in preference documents.
const (
	ChainEthereum = "ethereum"
	ChainPolygon  = "polygon"

	// ChainPrivacyProtocol marks a preference for a shielded direct deposit.
	ChainPrivacyProtocol = "privacy-protocol"
	// chainZkBob is the marker older documents publish for the same thing.
	chainZkBob = "zkbob"
)

// ChainMetadata describes a network the wallet can be connected to.
type ChainMetadata struct {
	ChainID     int64  `json:"chainId"`
	Name        string `json:"name"`
	ExplorerURL string `json:"explorerUrl"`
}

// TxURL returns the block explorer link for a transaction hash.
func (m ChainMetadata) TxURL(hash string) string {
	if m.ExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(m.ExplorerURL, "/") + "/tx/" + hash
}

var chains = map[int64]ChainMetadata{
	1:   {ChainID: 1, Name: ChainEthereum, ExplorerURL: "https://etherscan.io"},
	137: {ChainID: 137, Name: ChainPolygon, ExplorerURL: "https://polygonscan.com"},
}

// ChainByID looks up the metadata of a supported network.
func ChainByID(id int64) (ChainMetadata, bool) {
	m, ok := chains[id]
	return m, ok
}

// ChainIDByName maps a preference-document chain name to its chain id.
func ChainIDByName(name string) (int64, bool) {
	name = strings.ToLower(name)
	for id, m := range chains {
		if m.Name == name {
			return id, true
		}
	}
	return 0, false
}

// IsPrivacyProtocol reports whether a chain name is the shielded-deposit marker.
func IsPrivacyProtocol(chain string) bool {
	c := strings.ToLower(chain)
	return c == ChainPrivacyProtocol || c == chainZkBob
}
