package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Outcome is the chain assigned id of a successful transaction.
type Outcome struct {
	ID     string
	TxHash string
}

// AgentResponse is one VerificationResponseByAgent event.
type AgentResponse struct {
	Agent       string
	RequestID   string
	BlockNumber uint64
	TxHash      string
	Verified    bool
}

// PendingVerification is one entry of syncPendingVerifications.
type PendingVerification struct {
	RequestID     *big.Int
	User          string
	URI           string
	ResponseCount uint64
}

// Ledger is the part of the chain the api talks to.
type Ledger interface {
	HasOrder(ctx context.Context, actor string, kind OrderKind) (bool, error)
	Mint(ctx context.Context, to, uri string) (*Outcome, error)
	RequestVerification(ctx context.Context, user, uri string) (*Outcome, error)
	ResponsesByID(ctx context.Context, requestID string) ([]AgentResponse, error)
}

// AgentLedger is the part of the chain verifier agents talk to.
type AgentLedger interface {
	Address() string
	PendingVerifications(ctx context.Context) ([]PendingVerification, error)
	HasAgentResponded(ctx context.Context, requestID *big.Int) (bool, error)
	RespondVerification(ctx context.Context, requestID *big.Int, result VerificationResult, tokenID *big.Int) (string, error)
}

// Backend is satisfied by *ethclient.Client and by simulated backends.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type EVMLedger struct {
	backend        Backend
	key            *ecdsa.PrivateKey
	from           common.Address
	chainID        *big.Int
	nft            *bind.BoundContract
	factory        *bind.BoundContract
	nftDecoder     *Decoder
	factoryDecoder *Decoder
	factoryAddress common.Address
	fromBlock      uint64
	receiptTimeout time.Duration
	log            *zap.SugaredLogger

	// sendLock guards nonce assignment so concurrent writes signed by key never share one.
	sendLock  sync.Mutex
	nextNonce *uint64
}

type Option func(l *EVMLedger)

func WithLogsFromBlock(block uint64) Option {
	return func(l *EVMLedger) {
		l.fromBlock = block
	}
}

// WithReceiptTimeout bounds the wait for a submitted transaction to be mined.
func WithReceiptTimeout(timeout time.Duration) Option {
	return func(l *EVMLedger) {
		l.receiptTimeout = timeout
	}
}

// NewEVMLedger binds the NFT and factory contracts. hexKey signs every write.
func NewEVMLedger(backend Backend, hexKey string, chainID int64, nftAddress, factoryAddress string, opts ...Option) (*EVMLedger, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid ledger private key")
	}
	if !common.IsHexAddress(nftAddress) {
		return nil, fmt.Errorf("invalid nft contract address %q", nftAddress)
	}
	if !common.IsHexAddress(factoryAddress) {
		return nil, fmt.Errorf("invalid factory contract address %q", factoryAddress)
	}

	nftAddr := common.HexToAddress(nftAddress)
	factoryAddr := common.HexToAddress(factoryAddress)
	nftIface := NFTABI()
	factoryIface := FactoryABI()

	l := &EVMLedger{
		backend:        backend,
		key:            key,
		from:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:        big.NewInt(chainID),
		nft:            bind.NewBoundContract(nftAddr, nftIface, backend, backend, backend),
		factory:        bind.NewBoundContract(factoryAddr, factoryIface, backend, backend, backend),
		nftDecoder:     NewDecoder(nftIface, nftAddr),
		factoryDecoder: NewDecoder(factoryIface, factoryAddr),
		factoryAddress: factoryAddr,
		log:            zap.S().Named("ledger"),
	}
	for _, o := range opts {
		o(l)
	}

	return l, nil
}

func (l *EVMLedger) Address() string {
	return strings.ToLower(l.from.Hex())
}

func (l *EVMLedger) HasOrder(ctx context.Context, actor string, kind OrderKind) (bool, error) {
	var out []any
	if err := l.factory.Call(&bind.CallOpts{Context: ctx}, &out, "hasOrder", common.HexToAddress(actor), uint8(kind)); err != nil {
		return false, errors.Wrap(err, "hasOrder call failed")
	}
	return unpackBool(out)
}

func (l *EVMLedger) Mint(ctx context.Context, to, uri string) (*Outcome, error) {
	return l.submit(ctx, l.nft, l.nftDecoder, EventMinted, "mint", common.HexToAddress(to), uri)
}

func (l *EVMLedger) RequestVerification(ctx context.Context, user, uri string) (*Outcome, error) {
	return l.submit(ctx, l.factory, l.factoryDecoder, EventVerificationRequested, "requestVerification", common.HexToAddress(user), uri)
}

// submit sends the transaction, waits for it to be mined and extracts the id from its logs.
func (l *EVMLedger) submit(ctx context.Context, contract *bind.BoundContract, decoder *Decoder, eventName, method string, params ...any) (*Outcome, error) {
	receipt, err := l.transact(ctx, contract, method, params...)
	if err != nil {
		return nil, err
	}

	id, err := ScanOutcome(decoder, receipt.Logs, eventName, OutcomeArgIndex)
	if err != nil {
		if errors.Is(err, ErrOutcomeMissing) {
			l.log.Errorw("transaction mined without outcome event", "method", method, "tx", receipt.TxHash.Hex(), "event", eventName)
		}
		return nil, err
	}

	return &Outcome{ID: id, TxHash: receipt.TxHash.Hex()}, nil
}

func (l *EVMLedger) transact(ctx context.Context, contract *bind.BoundContract, method string, params ...any) (*types.Receipt, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transactor")
	}
	opts.Context = ctx

	tx, err := l.send(ctx, opts, contract, method, params...)
	if err != nil {
		return nil, err
	}
	l.log.Infow("transaction submitted", "method", method, "tx", tx.Hash().Hex())

	waitCtx := ctx
	if l.receiptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.receiptTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, l.backend, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed waiting for %s transaction %s", method, tx.Hash().Hex())
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.Wrapf(ErrTransactionReverted, "%s transaction %s", method, tx.Hash().Hex())
	}

	return receipt, nil
}

// send picks the nonce and broadcasts. The node's pending nonce can lag behind
// transactions this process already sent, so the higher of the two wins.
func (l *EVMLedger) send(ctx context.Context, opts *bind.TransactOpts, contract *bind.BoundContract, method string, params ...any) (*types.Transaction, error) {
	l.sendLock.Lock()
	defer l.sendLock.Unlock()

	nonce, err := l.backend.PendingNonceAt(ctx, l.from)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pending nonce")
	}
	if l.nextNonce != nil && *l.nextNonce > nonce {
		nonce = *l.nextNonce
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		// the node is the source of truth again after a rejected send
		l.nextNonce = nil
		return nil, errors.Wrapf(err, "%s transaction failed", method)
	}
	next := nonce + 1
	l.nextNonce = &next
	return tx, nil
}

func (l *EVMLedger) ResponsesByID(ctx context.Context, requestID string) ([]AgentResponse, error) {
	event := FactoryABI().Events[EventVerificationResponseByAgent]
	logs, err := l.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(l.fromBlock),
		Addresses: []common.Address{l.factoryAddress},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to filter agent responses")
	}

	ptrs := make([]*types.Log, len(logs))
	for i := range logs {
		ptrs[i] = &logs[i]
	}
	return CollectResponses(l.factoryDecoder, ptrs, requestID)
}

// CollectResponses keeps the VerificationResponseByAgent logs of one request.
func CollectResponses(d *Decoder, logs []*types.Log, requestID string) ([]AgentResponse, error) {
	responses := make([]AgentResponse, 0)
	for _, log := range logs {
		event, ok, err := d.DecodeLog(log)
		if err != nil || !ok || event.Name != EventVerificationResponseByAgent {
			continue
		}
		if formatArg(event.Args[1]) != requestID {
			continue
		}
		agent, _ := event.Args[0].(common.Address)
		verified, _ := event.Args[2].(bool)
		responses = append(responses, AgentResponse{
			Agent:       strings.ToLower(agent.Hex()),
			RequestID:   requestID,
			BlockNumber: log.BlockNumber,
			TxHash:      log.TxHash.Hex(),
			Verified:    verified,
		})
	}
	return responses, nil
}

func (l *EVMLedger) PendingVerifications(ctx context.Context) ([]PendingVerification, error) {
	var out []any
	if err := l.factory.Call(&bind.CallOpts{Context: ctx}, &out, "syncPendingVerifications"); err != nil {
		return nil, errors.Wrap(err, "syncPendingVerifications call failed")
	}
	return DecodePending(out)
}

// DecodePending converts the return values of syncPendingVerifications. The count must
// fit every array it indexes.
func DecodePending(out []any) ([]PendingVerification, error) {
	if len(out) != 5 {
		return nil, fmt.Errorf("syncPendingVerifications returned %d values", len(out))
	}

	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	ids := *abi.ConvertType(out[1], new([]*big.Int)).(*[]*big.Int)
	users := *abi.ConvertType(out[2], new([]common.Address)).(*[]common.Address)
	uris := *abi.ConvertType(out[3], new([]string)).(*[]string)
	responseCounts := *abi.ConvertType(out[4], new([]*big.Int)).(*[]*big.Int)

	if count == nil || count.Sign() < 0 || !count.IsInt64() {
		return nil, fmt.Errorf("syncPendingVerifications returned invalid count %v", count)
	}
	c := count.Int64()
	if c > int64(len(ids)) || c > int64(len(users)) || c > int64(len(uris)) || c > int64(len(responseCounts)) {
		return nil, fmt.Errorf("syncPendingVerifications returned inconsistent arrays for count %d", c)
	}
	n := int(c)

	pending := make([]PendingVerification, 0, n)
	for i := 0; i < n; i++ {
		pending = append(pending, PendingVerification{
			RequestID:     ids[i],
			User:          strings.ToLower(users[i].Hex()),
			URI:           uris[i],
			ResponseCount: responseCounts[i].Uint64(),
		})
	}
	return pending, nil
}

func (l *EVMLedger) HasAgentResponded(ctx context.Context, requestID *big.Int) (bool, error) {
	var out []any
	if err := l.factory.Call(&bind.CallOpts{Context: ctx}, &out, "hasAgentResponded", requestID, l.from); err != nil {
		return false, errors.Wrap(err, "hasAgentResponded call failed")
	}
	return unpackBool(out)
}

func (l *EVMLedger) RespondVerification(ctx context.Context, requestID *big.Int, result VerificationResult, tokenID *big.Int) (string, error) {
	if tokenID == nil {
		tokenID = new(big.Int)
	}
	receipt, err := l.transact(ctx, l.factory, "responseVerification", requestID, uint8(result), tokenID)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

func unpackBool(out []any) (bool, error) {
	if len(out) != 1 {
		return false, fmt.Errorf("expected a single return value, got %d", len(out))
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("expected a bool return value, got %T", out[0])
	}
	return v, nil
}
