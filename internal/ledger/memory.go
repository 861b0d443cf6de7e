package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// MemoryLedger simulates both contracts in process. Every write produces the same ABI
// encoded logs the deployed contracts would emit, and ids are read back from those logs.
type MemoryLedger struct {
	mu             sync.Mutex
	nftAddress     common.Address
	factoryAddress common.Address
	nftDecoder     *Decoder
	factoryDecoder *Decoder
	orders         map[string]map[OrderKind]int
	unlimited      bool
	omitOutcome    bool
	nextToken      int64
	nextRequest    int64
	block          uint64
	logs           []*types.Log
	requests       map[string]*memoryRequest
}

type memoryRequest struct {
	id        *big.Int
	user      common.Address
	uri       string
	responded map[common.Address]VerificationResult
}

type MemoryOption func(m *MemoryLedger)

// WithUnlimitedOrders makes every actor entitled to every kind of order.
func WithUnlimitedOrders() MemoryOption {
	return func(m *MemoryLedger) {
		m.unlimited = true
	}
}

// WithFirstTokenID sets the id assigned to the next mint.
func WithFirstTokenID(id int64) MemoryOption {
	return func(m *MemoryLedger) {
		m.nextToken = id
	}
}

// WithoutOutcomeEvents mines transactions that emit no id event.
func WithoutOutcomeEvents() MemoryOption {
	return func(m *MemoryLedger) {
		m.omitOutcome = true
	}
}

func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	nftAddress := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	factoryAddress := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	m := &MemoryLedger{
		nftAddress:     nftAddress,
		factoryAddress: factoryAddress,
		nftDecoder:     NewDecoder(NFTABI(), nftAddress),
		factoryDecoder: NewDecoder(FactoryABI(), factoryAddress),
		orders:         make(map[string]map[OrderKind]int),
		nextToken:      1,
		nextRequest:    1,
		requests:       make(map[string]*memoryRequest),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// GrantOrder records one paid order of the given kind for actor.
func (m *MemoryLedger) GrantOrder(actor string, kind OrderKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(actor)
	if m.orders[key] == nil {
		m.orders[key] = make(map[OrderKind]int)
	}
	m.orders[key][kind]++
}

func (m *MemoryLedger) HasOrder(_ context.Context, actor string, kind OrderKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unlimited || m.orders[strings.ToLower(actor)][kind] > 0, nil
}

func (m *MemoryLedger) consumeOrder(actor string, kind OrderKind) bool {
	if m.unlimited {
		return true
	}
	key := strings.ToLower(actor)
	if m.orders[key][kind] == 0 {
		return false
	}
	m.orders[key][kind]--
	return true
}

func (m *MemoryLedger) Mint(ctx context.Context, to, uri string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	txHash := m.txHash("mint", to, uri)
	if !m.consumeOrder(to, OrderMint) {
		return nil, errors.Wrapf(ErrTransactionReverted, "mint transaction %s", txHash.Hex())
	}

	tokenID := big.NewInt(m.nextToken)
	m.nextToken++

	var receipt []*types.Log
	if !m.omitOutcome {
		log, err := PackLog(NFTABI(), m.nftAddress, EventMinted, common.HexToAddress(to), tokenID)
		if err != nil {
			return nil, err
		}
		receipt = append(receipt, m.mine(log, txHash))
	}

	id, err := ScanOutcome(m.nftDecoder, receipt, EventMinted, OutcomeArgIndex)
	if err != nil {
		return nil, err
	}
	return &Outcome{ID: id, TxHash: txHash.Hex()}, nil
}

func (m *MemoryLedger) RequestVerification(ctx context.Context, user, uri string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	txHash := m.txHash("requestVerification", user, uri)
	if !m.consumeOrder(user, OrderVerify) {
		return nil, errors.Wrapf(ErrTransactionReverted, "requestVerification transaction %s", txHash.Hex())
	}

	requestID := big.NewInt(m.nextRequest)
	m.nextRequest++
	m.requests[requestID.String()] = &memoryRequest{
		id:        requestID,
		user:      common.HexToAddress(user),
		uri:       uri,
		responded: make(map[common.Address]VerificationResult),
	}

	var receipt []*types.Log
	if !m.omitOutcome {
		log, err := PackLog(FactoryABI(), m.factoryAddress, EventVerificationRequested, common.HexToAddress(user), requestID)
		if err != nil {
			return nil, err
		}
		receipt = append(receipt, m.mine(log, txHash))
	}

	id, err := ScanOutcome(m.factoryDecoder, receipt, EventVerificationRequested, OutcomeArgIndex)
	if err != nil {
		return nil, err
	}
	return &Outcome{ID: id, TxHash: txHash.Hex()}, nil
}

func (m *MemoryLedger) ResponsesByID(ctx context.Context, requestID string) ([]AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	logs := make([]*types.Log, len(m.logs))
	copy(logs, m.logs)
	m.mu.Unlock()

	return CollectResponses(m.factoryDecoder, logs, requestID)
}

// Respond records an agent response on request requestID. A VERIFIED result emits verified=true.
func (m *MemoryLedger) Respond(agent string, requestID *big.Int, result VerificationResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[requestID.String()]
	if !ok {
		return "", errors.Wrapf(ErrTransactionReverted, "unknown verification request %s", requestID)
	}
	agentAddress := common.HexToAddress(agent)
	if _, done := req.responded[agentAddress]; done {
		return "", errors.Wrapf(ErrTransactionReverted, "agent %s already responded to %s", agent, requestID)
	}
	req.responded[agentAddress] = result

	txHash := m.txHash("responseVerification", agent, requestID.String())
	log, err := PackLog(FactoryABI(), m.factoryAddress, EventVerificationResponseByAgent, agentAddress, requestID, result == ResultVerified)
	if err != nil {
		return "", err
	}
	m.mine(log, txHash)
	return txHash.Hex(), nil
}

// Agent returns the view of the ledger a verifier agent signing as address has.
func (m *MemoryLedger) Agent(address string) AgentLedger {
	return &memoryAgent{ledger: m, address: common.HexToAddress(address)}
}

func (m *MemoryLedger) mine(log *types.Log, txHash common.Hash) *types.Log {
	m.block++
	log.BlockNumber = m.block
	log.TxHash = txHash
	log.Index = uint(len(m.logs))
	m.logs = append(m.logs, log)
	return log
}

func (m *MemoryLedger) txHash(parts ...string) common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("%d:%s", m.block, strings.Join(parts, ":"))))
}

type memoryAgent struct {
	ledger  *MemoryLedger
	address common.Address
}

func (a *memoryAgent) Address() string {
	return strings.ToLower(a.address.Hex())
}

func (a *memoryAgent) PendingVerifications(ctx context.Context) ([]PendingVerification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.ledger.mu.Lock()
	defer a.ledger.mu.Unlock()

	pending := make([]PendingVerification, 0, len(a.ledger.requests))
	for i := int64(1); i < a.ledger.nextRequest; i++ {
		req, ok := a.ledger.requests[big.NewInt(i).String()]
		if !ok {
			continue
		}
		pending = append(pending, PendingVerification{
			RequestID:     req.id,
			User:          strings.ToLower(req.user.Hex()),
			URI:           req.uri,
			ResponseCount: uint64(len(req.responded)),
		})
	}
	return pending, nil
}

func (a *memoryAgent) HasAgentResponded(_ context.Context, requestID *big.Int) (bool, error) {
	a.ledger.mu.Lock()
	defer a.ledger.mu.Unlock()

	req, ok := a.ledger.requests[requestID.String()]
	if !ok {
		return false, nil
	}
	_, done := req.responded[a.address]
	return done, nil
}

func (a *memoryAgent) RespondVerification(_ context.Context, requestID *big.Int, result VerificationResult, _ *big.Int) (string, error) {
	return a.ledger.Respond(a.Address(), requestID, result)
}
