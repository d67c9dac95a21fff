package utils

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/okx/vesting/vesting"
)

var (
	_ vesting.Ledger = (*EthLedger)(nil)
	_ Backend        = (*ethclient.Client)(nil)
)

// DefaultConfirmTimeout bounds the wait for a single receipt.
const DefaultConfirmTimeout = 3 * time.Minute

// Backend is what EthLedger needs from a node connection.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// LedgerConfig describes the contract and the signing identity.
type LedgerConfig struct {
	Contract   ethcmn.Address
	PrivateKey *ecdsa.PrivateKey
	// ChainID is queried from the node when nil.
	ChainID *big.Int
	// GasPrice forces legacy pricing when set, otherwise EIP-1559 fees are
	// suggested by the node.
	GasPrice *big.Int
	// GasLimit of 0 lets the node estimate. Estimation replays the call, so a
	// call that would revert is rejected before it is broadcast.
	GasLimit       uint64
	ConfirmTimeout time.Duration
}

// EthLedger binds the TokenVesting contract to one signer.
type EthLedger struct {
	backend        Backend
	contract       *bind.BoundContract
	auth           *bind.TransactOpts
	confirmTimeout time.Duration
	log            log.Logger
}

// createHTTPClient creates the HTTP client used for the node connection
func createHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second, // Request timeout
	}
}

// Dial connects to the node at rawurl. HTTP endpoints get a client with a
// request timeout; ws and ipc endpoints use the go-ethereum defaults.
func Dial(ctx context.Context, rawurl string) (*ethclient.Client, error) {
	if rawurl == "" {
		return nil, errors.New("rpc url is empty")
	}
	rpcClient, err := rpc.DialOptions(ctx, rawurl, rpc.WithHTTPClient(createHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rpc client: %w", err)
	}
	return ethclient.NewClient(rpcClient), nil
}

// NewEthLedger builds the bound contract and the keyed transactor.
func NewEthLedger(ctx context.Context, backend Backend, cfg LedgerConfig, logger log.Logger) (*EthLedger, error) {
	if cfg.PrivateKey == nil {
		return nil, errors.New("signer private key is required")
	}
	if cfg.Contract == (ethcmn.Address{}) {
		return nil, errors.New("token vesting contract address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(TokenVestingABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TokenVesting ABI: %w", err)
	}

	chainID := cfg.ChainID
	if chainID == nil {
		chainID, err = backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get chain ID: %w", err)
		}
	}

	auth, err := NewTransactor(cfg.PrivateKey, chainID)
	if err != nil {
		return nil, err
	}
	auth.GasPrice = cfg.GasPrice
	auth.GasLimit = cfg.GasLimit

	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}

	logger.Debug("TokenVesting ledger ready", "contract", cfg.Contract, "signer", auth.From, "chainId", chainID)

	return &EthLedger{
		backend:        backend,
		contract:       bind.NewBoundContract(cfg.Contract, parsed, backend, backend, backend),
		auth:           auth,
		confirmTimeout: timeout,
		log:            logger,
	}, nil
}

// Signer returns the address submitting transactions.
func (l *EthLedger) Signer() ethcmn.Address {
	return l.auth.From
}

// CreateVestingSchedule sends createVestingSchedule for s.
func (l *EthLedger) CreateVestingSchedule(ctx context.Context, s vesting.Schedule) (*types.Transaction, error) {
	if s.Amount == nil {
		return nil, errors.New("schedule amount is nil")
	}
	tx, err := l.contract.Transact(l.transactOpts(ctx), "createVestingSchedule",
		s.Beneficiary,
		new(big.Int).SetUint64(s.Start),
		new(big.Int).SetUint64(s.Cliff),
		new(big.Int).SetUint64(s.Duration),
		new(big.Int).SetUint64(s.SlicePeriodSeconds),
		s.Revocable,
		s.Amount.ToBig(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send createVestingSchedule: %w", err)
	}
	l.log.Debug("createVestingSchedule sent", "tx", tx.Hash(), "nonce", tx.Nonce(), "gas", tx.Gas())
	return tx, nil
}

// InitialTransfer sends all entries in one initialTransfer call.
func (l *EthLedger) InitialTransfer(ctx context.Context, entries []vesting.Distribution) (*types.Transaction, error) {
	packed := make([]transferEntry, len(entries))
	for i, e := range entries {
		if e.Amount == nil {
			return nil, fmt.Errorf("receiver %d amount is nil", i)
		}
		packed[i] = transferEntry{Receiver: e.Receiver, Amount: e.Amount.ToBig()}
	}
	tx, err := l.contract.Transact(l.transactOpts(ctx), "initialTransfer", packed)
	if err != nil {
		return nil, fmt.Errorf("failed to send initialTransfer: %w", err)
	}
	l.log.Debug("initialTransfer sent", "tx", tx.Hash(), "nonce", tx.Nonce(), "gas", tx.Gas())
	return tx, nil
}

// WaitMined waits for tx under the configured confirmation timeout.
func (l *EthLedger) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	l.log.Info("Waiting tx to be mined", "tx", tx.Hash())
	return WaitTxToBeMined(ctx, l.backend, l.auth.From, tx, l.confirmTimeout)
}

// transactOpts copies the keyed transactor so each call carries its own
// context. The nonce is left to the node, which is safe because every call
// is confirmed before the next one is sent.
func (l *EthLedger) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *l.auth
	opts.Context = ctx
	return &opts
}
