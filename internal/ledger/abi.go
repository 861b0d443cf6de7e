package ledger

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// OrderKind mirrors the factory OrderType enum.
type OrderKind uint8

const (
	OrderNone OrderKind = iota
	OrderMint
	OrderVerify
)

func (k OrderKind) String() string {
	switch k {
	case OrderMint:
		return "mint"
	case OrderVerify:
		return "verify"
	default:
		return "none"
	}
}

// VerificationResult mirrors the factory VerificationResult enum.
type VerificationResult uint8

const (
	ResultNone VerificationResult = iota
	ResultVerified
	ResultModified
	ResultNotVerified
)

func (r VerificationResult) String() string {
	switch r {
	case ResultVerified:
		return "VERIFIED"
	case ResultModified:
		return "MODIFIED"
	case ResultNotVerified:
		return "NOT_VERIFIED"
	default:
		return "NONE"
	}
}

// Event names and the position of the id argument in each.
const (
	EventMinted                      = "Minted"
	EventVerificationRequested       = "VerificationRequested"
	EventVerificationResponseByAgent = "VerificationResponseByAgent"

	OutcomeArgIndex = 1
)

const nftABIJSON = `[
  {"anonymous":false,"type":"event","name":"Minted","inputs":[
    {"indexed":false,"internalType":"address","name":"to","type":"address"},
    {"indexed":false,"internalType":"uint256","name":"tokenId","type":"uint256"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
    {"internalType":"address","name":"to","type":"address"},
    {"internalType":"string","name":"uri","type":"string"}],"outputs":[]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"_tokenId","type":"uint256"}],"outputs":[
    {"internalType":"string","name":"","type":"string"}]}
]`

const factoryABIJSON = `[
  {"anonymous":false,"type":"event","name":"VerificationRequested","inputs":[
    {"indexed":false,"internalType":"address","name":"user","type":"address"},
    {"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"}]},
  {"anonymous":false,"type":"event","name":"VerificationResponseByAgent","inputs":[
    {"indexed":false,"internalType":"address","name":"agent","type":"address"},
    {"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"},
    {"indexed":false,"internalType":"bool","name":"verified","type":"bool"}]},
  {"type":"function","name":"hasOrder","stateMutability":"view","inputs":[
    {"internalType":"address","name":"user","type":"address"},
    {"internalType":"uint8","name":"orderType","type":"uint8"}],"outputs":[
    {"internalType":"bool","name":"","type":"bool"}]},
  {"type":"function","name":"requestVerification","stateMutability":"nonpayable","inputs":[
    {"internalType":"address","name":"user","type":"address"},
    {"internalType":"string","name":"uri","type":"string"}],"outputs":[]},
  {"type":"function","name":"syncPendingVerifications","stateMutability":"view","inputs":[],"outputs":[
    {"internalType":"uint256","name":"count","type":"uint256"},
    {"internalType":"uint256[]","name":"requestIds","type":"uint256[]"},
    {"internalType":"address[]","name":"users","type":"address[]"},
    {"internalType":"string[]","name":"uris","type":"string[]"},
    {"internalType":"uint256[]","name":"responseCounts","type":"uint256[]"}]},
  {"type":"function","name":"hasAgentResponded","stateMutability":"view","inputs":[
    {"internalType":"uint256","name":"requestId","type":"uint256"},
    {"internalType":"address","name":"agent","type":"address"}],"outputs":[
    {"internalType":"bool","name":"","type":"bool"}]},
  {"type":"function","name":"responseVerification","stateMutability":"nonpayable","inputs":[
    {"internalType":"uint256","name":"requestId","type":"uint256"},
    {"internalType":"uint8","name":"result","type":"uint8"},
    {"internalType":"uint256","name":"propertyTokenId","type":"uint256"}],"outputs":[]}
]`

var (
	parseOnce  sync.Once
	nftABI     abi.ABI
	factoryABI abi.ABI
)

func parseABIs() {
	parseOnce.Do(func() {
		// both documents are constants; a parse failure is a programming error
		nftABI = mustParse(nftABIJSON)
		factoryABI = mustParse(factoryABIJSON)
	})
}

func mustParse(doc string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(doc))
	if err != nil {
		panic(err)
	}
	return parsed
}

// NFTABI returns the parsed interface of the NFT contract.
func NFTABI() abi.ABI {
	parseABIs()
	return nftABI
}

// FactoryABI returns the parsed interface of the factory contract.
func FactoryABI() abi.ABI {
	parseABIs()
	return factoryABI
}
