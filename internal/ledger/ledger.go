// Package ledger anchors a report on an EVM chain by calling
// submitWhistleblow(proof, contentId, root) from a locally held key.
package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

// Backend is the slice of a JSON-RPC client the ledger needs.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "failed to dial ledger RPC")
	}
	return c, nil
}

type Client struct {
	backend      Backend
	contract     common.Address
	key          *ecdsa.PrivateKey
	from         common.Address
	abi          abi.ABI
	gasLimit     uint64
	waitReceipt  bool
	pollInterval time.Duration
	logger       *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithReceiptWait makes Submit block until the transaction is mined and fail
// if it reverted.
func WithReceiptWait(poll time.Duration) Option {
	return func(c *Client) {
		c.waitReceipt = true
		c.pollInterval = poll
	}
}

// WithGasLimit fixes the gas limit instead of estimating. Estimation still
// runs, since a revert during estimation is how a reused nullifier surfaces.
func WithGasLimit(limit uint64) Option {
	return func(c *Client) {
		c.gasLimit = limit
	}
}

func New(backend Backend, contract, privateKeyHex string, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("ledger backend is required")
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("contract address %q is not a hex address", contract)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.New("ledger private key is not a valid secp256k1 hex key")
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}
	c := &Client{
		backend:      backend,
		contract:     common.HexToAddress(contract),
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		abi:          parsed,
		pollInterval: 2 * time.Second,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	return c, nil
}

// From is the account transactions are sent from.
func (c *Client) From() common.Address {
	return c.from
}

// Submit signs and broadcasts one submitWhistleblow transaction and returns
// its hash. A revert during gas estimation (for example a reused nullifier)
// and a failed receipt are both CodeLedgerSubmissionFailed.
func (c *Client) Submit(ctx context.Context, proof []byte, contentID string, root field.Scalar) (string, error) {
	data, err := PackSubmit(c.abi, proof, contentID, root)
	if err != nil {
		return "", err
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeNetworkFailure, "ledger RPC unreachable")
	}
	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeNetworkFailure, "failed to read account nonce")
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeNetworkFailure, "failed to read gas price")
	}

	estimated, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.from,
		To:       &c.contract,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "ledger call would revert", "error", err)
		return "", dErrors.Wrap(err, dErrors.CodeLedgerSubmissionFailed, "contract rejected the submission")
	}
	gas := c.gasLimit
	if gas == 0 {
		gas = estimated + estimated/5
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &c.contract,
		Value:    new(big.Int),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeLedgerSubmissionFailed, "failed to sign transaction")
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeLedgerSubmissionFailed, "transaction was not accepted")
	}
	hash := signed.Hash()
	c.logger.InfoContext(ctx, "ledger transaction sent",
		"tx", hash.Hex(),
		"content_id", contentID,
		"nonce", nonce,
	)

	if c.waitReceipt {
		if err := c.awaitReceipt(ctx, hash); err != nil {
			return "", err
		}
	}
	return hash.Hex(), nil
}

func (c *Client) awaitReceipt(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return dErrors.New(dErrors.CodeLedgerSubmissionFailed, "transaction reverted")
			}
			c.logger.InfoContext(ctx, "ledger transaction mined", "tx", hash.Hex(), "block", receipt.BlockNumber)
			return nil
		case !errors.Is(err, ethereum.NotFound):
			return dErrors.Wrap(err, dErrors.CodeLedgerSubmissionFailed, "failed to read receipt")
		}
		select {
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeLedgerSubmissionFailed, "timed out waiting for receipt")
		case <-ticker.C:
		}
	}
}
