package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/b-harvest/stele-backend/metrics"
)

// ContractCaller is implemented by *ethclient.Client.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthOracle answers oracle queries with eth_call against an Ethereum node.
type EthOracle struct {
	cfg        Config
	client     ContractCaller
	factory    common.Address
	stele      common.Address
	factoryABI abi.ABI
	poolABI    abi.ABI
	erc20ABI   abi.ABI
	steleABI   abi.ABI
}

var _ Oracle = (*EthOracle)(nil)

func NewEthOracle(cfg Config, client ContractCaller) (*EthOracle, error) {
	o := &EthOracle{
		cfg:     cfg,
		client:  client,
		factory: common.HexToAddress(cfg.FactoryAddress),
		stele:   common.HexToAddress(cfg.SteleAddress),
	}
	for _, x := range []struct {
		abi  *abi.ABI
		json string
		name string
	}{
		{&o.factoryABI, factoryABIJSON, "factory"},
		{&o.poolABI, poolABIJSON, "pool"},
		{&o.erc20ABI, erc20ABIJSON, "erc20"},
		{&o.steleABI, steleABIJSON, "stele"},
	} {
		parsed, err := abi.JSON(strings.NewReader(x.json))
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", x.name, err)
		}
		*x.abi = parsed
	}
	return o, nil
}

func (o *EthOracle) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) (res []interface{}, err error) {
	defer func() {
		metrics.ObserveOracleCall(method, err)
	}()
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}
	out, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, BlockNumber(ctx))
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("call %s on %s: %w: %w", method, to.Hex(), ErrReverted, err)
		}
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		// Accounts without code answer every call with empty data.
		return nil, fmt.Errorf("call %s on %s: %w: empty return data", method, to.Hex(), ErrReverted)
	}
	res, err = contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s from %s: %w: %w", method, to.Hex(), ErrReverted, err)
	}
	return res, nil
}

// revertErrorCode is the JSON-RPC error code nodes use for reverted calls.
const revertErrorCode = 3

func isRevert(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "invalid opcode")
}

func (o *EthOracle) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	res, err := o.call(ctx, o.factory, o.factoryABI, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return firstAddress(res)
}

func (o *EthOracle) Token0(ctx context.Context, pool common.Address) (common.Address, error) {
	res, err := o.call(ctx, pool, o.poolABI, "token0")
	if err != nil {
		return common.Address{}, err
	}
	return firstAddress(res)
}

func (o *EthOracle) Token1(ctx context.Context, pool common.Address) (common.Address, error) {
	res, err := o.call(ctx, pool, o.poolABI, "token1")
	if err != nil {
		return common.Address{}, err
	}
	return firstAddress(res)
}

func (o *EthOracle) Liquidity(ctx context.Context, pool common.Address) (*big.Int, error) {
	res, err := o.call(ctx, pool, o.poolABI, "liquidity")
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

func (o *EthOracle) SqrtPriceX96(ctx context.Context, pool common.Address) (*big.Int, error) {
	res, err := o.call(ctx, pool, o.poolABI, "slot0")
	if err != nil {
		return nil, err
	}
	return firstBigInt(res)
}

func (o *EthOracle) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	res, err := o.call(ctx, token, o.erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, fmt.Errorf("%w: empty result", ErrReverted)
	}
	d, ok := res[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected decimals type %T", ErrReverted, res[0])
	}
	return d, nil
}

func (o *EthOracle) Symbol(ctx context.Context, token common.Address) (string, error) {
	res, err := o.call(ctx, token, o.erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	if len(res) == 0 {
		return "", fmt.Errorf("%w: empty result", ErrReverted)
	}
	s, ok := res[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected symbol type %T", ErrReverted, res[0])
	}
	return s, nil
}

func (o *EthOracle) UserPortfolio(ctx context.Context, challengeID *big.Int, user common.Address) ([]common.Address, []*big.Int, error) {
	res, err := o.call(ctx, o.stele, o.steleABI, "getUserPortfolio", challengeID, user)
	if err != nil {
		return nil, nil, err
	}
	return addressesAndAmounts(res)
}

func (o *EthOracle) Ranking(ctx context.Context, challengeID *big.Int) ([]common.Address, []*big.Int, error) {
	res, err := o.call(ctx, o.stele, o.steleABI, "getRanking", challengeID)
	if err != nil {
		return nil, nil, err
	}
	return addressesAndAmounts(res)
}

func firstAddress(res []interface{}) (common.Address, error) {
	if len(res) == 0 {
		return common.Address{}, fmt.Errorf("%w: empty result", ErrReverted)
	}
	a, ok := res[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unexpected address type %T", ErrReverted, res[0])
	}
	return a, nil
}

func firstBigInt(res []interface{}) (*big.Int, error) {
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrReverted)
	}
	x, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected integer type %T", ErrReverted, res[0])
	}
	return x, nil
}

func addressesAndAmounts(res []interface{}) ([]common.Address, []*big.Int, error) {
	if len(res) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 results, got %d", ErrReverted, len(res))
	}
	addrs, ok := res[0].([]common.Address)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unexpected addresses type %T", ErrReverted, res[0])
	}
	amounts, ok := res[1].([]*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unexpected amounts type %T", ErrReverted, res[1])
	}
	if len(addrs) != len(amounts) {
		return nil, nil, fmt.Errorf("%w: mismatching result lengths: %d addresses, %d amounts", ErrReverted, len(addrs), len(amounts))
	}
	return addrs, amounts, nil
}
