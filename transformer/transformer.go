package transformer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/config"
	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/store"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler applies decoded contract events to the indexed state.
type Handler interface {
	SteleCreated(ctx context.Context, ev schema.SteleCreatedEvent) error
	AddToken(ctx context.Context, ev schema.AddTokenEvent) error
	RemoveToken(ctx context.Context, ev schema.RemoveTokenEvent) error
	RewardRatio(ctx context.Context, ev schema.RewardRatioEvent) error
	SeedMoney(ctx context.Context, ev schema.SeedMoneyEvent) error
	EntryFee(ctx context.Context, ev schema.EntryFeeEvent) error
	MaxAssets(ctx context.Context, ev schema.MaxAssetsEvent) error
	OwnershipTransferred(ctx context.Context, ev schema.OwnershipTransferredEvent) error
	Create(ctx context.Context, ev schema.CreateEvent) error
	Join(ctx context.Context, ev schema.JoinEvent) error
	Swap(ctx context.Context, ev schema.SwapEvent) error
	Register(ctx context.Context, ev schema.RegisterEvent) error
	Reward(ctx context.Context, ev schema.RewardEvent) error
}

type Transformer struct {
	cfg    config.IndexerConfig
	st     store.Store
	h      Handler
	dec    *Decoder
	stele  common.Address
	logger *zap.Logger
}

func New(cfg config.IndexerConfig, st store.Store, h Handler, logger *zap.Logger) (*Transformer, error) {
	dec, err := NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	return &Transformer{
		cfg:    cfg,
		st:     st,
		h:      h,
		dec:    dec,
		stele:  common.HexToAddress(cfg.Oracle.SteleAddress),
		logger: logger,
	}, nil
}

func (t *Transformer) Run(ctx context.Context) error {
	for {
		t.logger.Debug("getting checkpoint")
		cp, err := t.st.Checkpoint(ctx)
		if err != nil {
			return fmt.Errorf("get checkpoint: %w", err)
		}
		next := t.cfg.BlockData.StartBlock
		if cp.BlockNumber > 0 && cp.BlockNumber+1 > next {
			next = cp.BlockNumber + 1
		}
		t.logger.Debug("waiting for block data", zap.Uint64("from", next))
		data, err := t.WaitForBlockData(ctx, next, 0)
		if err != nil {
			return fmt.Errorf("wait for block data: %w", err)
		}
		if data.FromBlock != next || data.ToBlock < data.FromBlock {
			return fmt.Errorf("wrong block range; expected from %d, got %d-%d", next, data.FromBlock, data.ToBlock)
		}
		t.logger.Info("processing blocks", zap.Uint64("from", data.FromBlock), zap.Uint64("to", data.ToBlock))
		if err := t.ProcessBlockData(ctx, data); err != nil {
			return fmt.Errorf("process block data: %w", err)
		}
		t.logger.Debug("updating latest block number", zap.Uint64("block", data.ToBlock))
		if err := t.st.SetLatestBlockNumber(ctx, data.ToBlock); err != nil {
			return fmt.Errorf("update latest block number: %w", err)
		}
		metrics.LatestBlock.Set(float64(data.ToBlock))
	}
}

func (t *Transformer) WaitForBlockData(ctx context.Context, fromBlock uint64, timeout time.Duration) (*BlockData, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		data, err := ReadBlockData(t.cfg.BlockData, fromBlock)
		if err != nil {
			var berr *BlockDataDecodeError
			if !os.IsNotExist(err) && !errors.As(err, &berr) {
				return nil, fmt.Errorf("read block data: %w", err)
			}
		} else {
			return data, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.cfg.BlockData.WaitingInterval):
		}
	}
}

// ProcessBlockData handles the contract's logs in chain order. Handling
// stops at the first log that fails.
func (t *Transformer) ProcessBlockData(ctx context.Context, data *BlockData) error {
	for _, l := range data.Logs(t.stele) {
		if err := t.ProcessLog(ctx, l); err != nil {
			return fmt.Errorf("process log %s-%d: %w", l.TxHash.Hex(), l.Index, err)
		}
	}
	return nil
}

// ProcessLog decodes and handles a single log. A log whose event record
// already exists has been handled before and is skipped.
func (t *Transformer) ProcessLog(ctx context.Context, l BlockLog) error {
	ev, err := t.dec.Decode(l)
	if err != nil {
		if errors.Is(err, ErrUnknownEvent) {
			metrics.EventsSkipped.WithLabelValues("unknown", "unknown_event").Inc()
			return nil
		}
		metrics.EventsSkipped.WithLabelValues("unknown", "decode_error").Inc()
		t.logger.Error("failed to decode log", zap.Uint64("block", l.BlockNumber),
			zap.String("tx", l.TxHash.Hex()), zap.Uint("index", l.Index), zap.Error(err))
		return nil
	}
	rec := ev.Record()
	existing, err := store.Get[schema.EventRecord](ctx, t.st, store.KindEvent, rec.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		metrics.EventsSkipped.WithLabelValues(ev.Name, "duplicate").Inc()
		t.logger.Debug("skipping handled event", zap.String("event", ev.Name), zap.String("id", rec.ID))
		return nil
	}
	ctx = oracle.WithBlockNumber(ctx, l.BlockNumber)
	if err := t.dispatch(ctx, ev); err != nil {
		return fmt.Errorf("handle %s: %w", ev.Name, err)
	}
	if err := store.Put(ctx, t.st, store.KindEvent, rec.ID, rec); err != nil {
		return err
	}
	metrics.EventsProcessed.WithLabelValues(ev.Name).Inc()
	return nil
}

func (t *Transformer) dispatch(ctx context.Context, ev Event) error {
	switch p := ev.Payload.(type) {
	case schema.SteleCreatedEvent:
		return t.h.SteleCreated(ctx, p)
	case schema.AddTokenEvent:
		return t.h.AddToken(ctx, p)
	case schema.RemoveTokenEvent:
		return t.h.RemoveToken(ctx, p)
	case schema.RewardRatioEvent:
		return t.h.RewardRatio(ctx, p)
	case schema.SeedMoneyEvent:
		return t.h.SeedMoney(ctx, p)
	case schema.EntryFeeEvent:
		return t.h.EntryFee(ctx, p)
	case schema.MaxAssetsEvent:
		return t.h.MaxAssets(ctx, p)
	case schema.OwnershipTransferredEvent:
		return t.h.OwnershipTransferred(ctx, p)
	case schema.CreateEvent:
		return t.h.Create(ctx, p)
	case schema.JoinEvent:
		return t.h.Join(ctx, p)
	case schema.SwapEvent:
		return t.h.Swap(ctx, p)
	case schema.RegisterEvent:
		return t.h.Register(ctx, p)
	case schema.RewardEvent:
		return t.h.Reward(ctx, p)
	case schema.SteleTokenBonusEvent:
		// Only the raw record is kept.
		return nil
	default:
		return fmt.Errorf("unexpected payload %T", p)
	}
}
