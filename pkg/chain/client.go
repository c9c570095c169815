// Package chain is the Monad testnet RPC client: smart wallet lookups,
// balance prechecks and tip transaction broadcast.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/config"
)

// Receipt is the confirmation result of a broadcast transaction.
type Receipt struct {
	Status      uint64
	BlockNumber uint64
	GasUsed     uint64
}

// Client wraps the ethclient connection, the bot signing key and the wallet
// factory contract.
type Client struct {
	config     *config.ChainConfig
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	factoryAddress common.Address
	factoryABI     abi.ABI
	walletABI      abi.ABI
	erc20ABI       abi.ABI
}

// NewClient connects to the chain RPC and loads the bot key.
func NewClient(cfg *config.ChainConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.BotPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load bot private key: %w", err)
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	factory, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}
	wallet, err := abi.JSON(strings.NewReader(walletABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet ABI: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("factory_contract", cfg.FactoryContract),
		zap.String("bot_address", address.Hex()))

	return &Client{
		config:         cfg,
		client:         client,
		privateKey:     privateKey,
		address:        address,
		logger:         logger,
		factoryAddress: common.HexToAddress(cfg.FactoryContract),
		factoryABI:     factory,
		walletABI:      wallet,
		erc20ABI:       erc20,
	}, nil
}

// Close closes the RPC connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// BotAddress returns the bot EOA derived from the signing key.
func (c *Client) BotAddress() string {
	return c.address.Hex()
}

// WalletOf resolves a FID to its factory-deployed smart wallet. Returns the
// empty string when no wallet exists for the FID.
func (c *Client) WalletOf(ctx context.Context, fid int64) (string, error) {
	addr, err := c.callForAddress(ctx, c.factoryAddress, c.factoryABI, "getWallet", big.NewInt(fid))
	if err != nil {
		return "", fmt.Errorf("failed to query wallet for fid %d: %w", fid, err)
	}
	if addr == (common.Address{}) {
		return "", nil
	}
	return addr.Hex(), nil
}

// BotAddressOf returns the bot address the smart wallet is authorized for.
func (c *Client) BotAddressOf(ctx context.Context, wallet string) (string, error) {
	addr, err := c.callForAddress(ctx, common.HexToAddress(wallet), c.walletABI, "botAddress")
	if err != nil {
		return "", fmt.Errorf("failed to query wallet bot address: %w", err)
	}
	return addr.Hex(), nil
}

// NativeBalance returns the native token balance of an address.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	balance, err := c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query native balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns the ERC-20 balance of holder for the given token.
func (c *Client) TokenBalance(ctx context.Context, tokenContract, holder string) (*big.Int, error) {
	data, err := c.erc20ABI.Pack("balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	contract := common.HexToAddress(tokenContract)
	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query token balance: %w", err)
	}

	results, err := c.erc20ABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	return results[0].(*big.Int), nil
}

// PendingNonce returns the bot EOA's pending nonce from the chain.
func (c *Client) PendingNonce(ctx context.Context) (uint64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending nonce: %w", err)
	}
	return nonce, nil
}

// SendTip signs and broadcasts a sendTip call on the sender's smart wallet.
// The transaction hash is returned even when the broadcast errors, so an
// ambiguous outcome can be reconciled against the chain before any retry.
func (c *Client) SendTip(ctx context.Context, wallet, recipient, tokenContract string, amount *big.Int, nonce uint64) (string, error) {
	data, err := c.walletABI.Pack("sendTip",
		common.HexToAddress(recipient),
		common.HexToAddress(tokenContract),
		amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack sendTip: %w", err)
	}

	gasPrice, err := c.gasPrice(ctx)
	if err != nil {
		return "", err
	}

	walletAddr := common.HexToAddress(wallet)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &walletAddr,
		Gas:      c.config.GasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(big.NewInt(c.config.ChainID)), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	txHash := signed.Hash().Hex()

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return txHash, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	c.logger.Info("Tip transaction broadcast",
		zap.String("tx_hash", txHash),
		zap.Uint64("nonce", nonce),
		zap.String("wallet", wallet),
		zap.String("recipient", recipient))

	return txHash, nil
}

// Receipt fetches the receipt for a transaction. Returns (nil, nil) while the
// transaction is still unmined.
func (c *Client) Receipt(ctx context.Context, txHash string) (*Receipt, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	return &Receipt{
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// KnownTransaction reports whether the chain knows the transaction, mined or
// pending.
func (c *Client) KnownTransaction(ctx context.Context, txHash string) (bool, error) {
	_, _, err := c.client.TransactionByHash(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up transaction: %w", err)
	}
	return true, nil
}

// gasPrice suggests a gas price, capped at the configured maximum.
func (c *Client) gasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	if c.config.MaxGasPrice != "" {
		maxGasPrice := new(big.Int)
		maxGasPrice.SetString(c.config.MaxGasPrice, 10)
		if maxGasPrice.Sign() > 0 && gasPrice.Cmp(maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", maxGasPrice.String()))
			gasPrice = maxGasPrice
		}
	}
	return gasPrice, nil
}

// callForAddress performs a read-only contract call returning a single address.
func (c *Client) callForAddress(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...any) (common.Address, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}

	results, err := contractABI.Unpack(method, output)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return results[0].(common.Address), nil
}
