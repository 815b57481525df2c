package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/midnight-labs/pincade/ports"
)

// scoreContractABI covers the three game-contract functions the
// backend uses.
const scoreContractABI = `[
	{"name":"submitScore","type":"function","stateMutability":"nonpayable","inputs":[{"name":"player","type":"address"},{"name":"score","type":"uint256"}],"outputs":[]},
	{"name":"scoreOf","type":"function","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"rewardOf","type":"function","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// rewardDecimals is the reward token's decimal precision.
const rewardDecimals = 18

// EthereumChain implements the ScoreChain interface against the game
// contract over JSON-RPC
type EthereumChain struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
	signKey  *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
}

// NewEthereumChain dials the RPC endpoint and prepares the submitter
// account
func NewEthereumChain(ctx context.Context, rpcURL string, contract common.Address, privateKeyHex string) (ports.ScoreChain, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(scoreContractABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse submitter key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}

	return &EthereumChain{
		client:   client,
		contract: contract,
		abi:      parsed,
		signKey:  key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
	}, nil
}

// SubmitScore sends a submitScore transaction for the wallet and
// returns its hash without waiting for inclusion
func (c *EthereumChain) SubmitScore(ctx context.Context, wallet string, score int64) (string, error) {
	data, err := c.abi.Pack("submitScore", common.HexToAddress(wallet), big.NewInt(score))
	if err != nil {
		return "", fmt.Errorf("failed to pack submitScore: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// Score reads the wallet's current on-chain score
func (c *EthereumChain) Score(ctx context.Context, wallet string) (int64, error) {
	out, err := c.call(ctx, "scoreOf", common.HexToAddress(wallet))
	if err != nil {
		return 0, err
	}
	return out.Int64(), nil
}

// RewardBalance reads the wallet's accrued reward and converts it from
// wei to whole token units
func (c *EthereumChain) RewardBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	wei, err := c.call(ctx, "rewardOf", common.HexToAddress(wallet))
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(wei, -rewardDecimals), nil
}

func (c *EthereumChain) call(ctx context.Context, method string, player common.Address) (*big.Int, error) {
	data, err := c.abi.Pack(method, player)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	raw, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity: %d", method, len(out))
	}

	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type: %T", method, out[0])
	}

	return value, nil
}
