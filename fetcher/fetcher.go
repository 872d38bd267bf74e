// Package fetcher pulls the contract's logs from an Ethereum node and writes
// them as block data files for the indexer.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/b-harvest/stele-backend/config"
	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/transformer"
	"github.com/b-harvest/stele-backend/util"
)

var errNoBlockData = errors.New("no block data")

// Client is implemented by *ethclient.Client.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

type Fetcher struct {
	cfg    config.FetcherConfig
	c      Client
	addr   common.Address
	logger *zap.Logger
}

func New(cfg config.FetcherConfig, c Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		c:      c,
		addr:   common.HexToAddress(cfg.SteleAddress),
		logger: logger,
	}
}

func (f *Fetcher) Run(ctx context.Context) error {
	next, err := f.NextBlock()
	if err != nil {
		return fmt.Errorf("get next block: %w", err)
	}
	f.logger.Info("starting fetcher", zap.Uint64("from", next))
	ticker := util.NewImmediateTicker(f.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		next, err = f.CatchUp(ctx, next)
		if err != nil {
			return err
		}
	}
}

// CatchUp writes block data from the next block up to the latest confirmed
// block, and returns the block to continue from.
func (f *Fetcher) CatchUp(ctx context.Context, next uint64) (uint64, error) {
	latest, err := f.c.BlockNumber(ctx)
	if err != nil {
		return next, fmt.Errorf("get latest block number: %w", err)
	}
	if latest < f.cfg.Confirmations {
		return next, nil
	}
	safe := latest - f.cfg.Confirmations
	for next <= safe {
		select {
		case <-ctx.Done():
			return next, ctx.Err()
		default:
		}
		to := next + f.cfg.ChunkSize - 1
		if to > safe {
			to = safe
		}
		data, err := f.FetchBlockData(ctx, next, to)
		if err != nil {
			return next, fmt.Errorf("fetch blocks %d-%d: %w", next, to, err)
		}
		if err := transformer.WriteBlockData(f.cfg.BlockData, data); err != nil {
			return next, fmt.Errorf("write block data: %w", err)
		}
		f.logger.Debug("wrote block data", zap.Uint64("from", next), zap.Uint64("to", to),
			zap.Int("blocks", len(data.Blocks)))
		metrics.FetchedBlock.Set(float64(to))
		next = to + 1
	}
	return next, nil
}

// FetchBlockData collects the contract's logs in [from, to] grouped by block,
// together with the timestamps of the blocks that have logs.
func (f *Fetcher) FetchBlockData(ctx context.Context, from, to uint64) (*transformer.BlockData, error) {
	logs, err := f.c.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{f.addr},
	})
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}
	byNumber := make(map[uint64]*transformer.Block)
	for _, l := range logs {
		if l.Removed {
			continue
		}
		b, ok := byNumber[l.BlockNumber]
		if !ok {
			b = &transformer.Block{Number: l.BlockNumber}
			byNumber[l.BlockNumber] = b
		}
		b.Logs = append(b.Logs, l)
	}
	blocks := make([]*transformer.Block, 0, len(byNumber))
	for _, b := range byNumber {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Number < blocks[j].Number
	})

	eg, ctx2 := errgroup.WithContext(ctx)
	eg.SetLimit(f.cfg.Concurrency)
	for _, b := range blocks {
		b := b
		eg.Go(func() error {
			h, err := f.c.HeaderByNumber(ctx2, new(big.Int).SetUint64(b.Number))
			if err != nil {
				return fmt.Errorf("get header %d: %w", b.Number, err)
			}
			b.Timestamp = int64(h.Time)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	data := &transformer.BlockData{FromBlock: from, ToBlock: to}
	for _, b := range blocks {
		data.Blocks = append(data.Blocks, *b)
	}
	return data, nil
}

// NextBlock returns the block following the latest written block data, or
// the configured start block when nothing has been written yet.
func (f *Fetcher) NextBlock() (uint64, error) {
	from, err := f.LatestFromBlock()
	if err != nil {
		if errors.Is(err, errNoBlockData) {
			return f.cfg.BlockData.StartBlock, nil
		}
		return 0, err
	}
	data, err := transformer.ReadBlockData(f.cfg.BlockData, from)
	if err != nil {
		return 0, fmt.Errorf("read block data: %w", err)
	}
	return data.ToBlock + 1, nil
}

func (f *Fetcher) LatestBlockBucket() (uint64, error) {
	es, err := os.ReadDir(f.cfg.BlockData.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errNoBlockData
		}
		return 0, fmt.Errorf("read dir: %w", err)
	}
	var buckets []uint64
	for _, e := range es {
		if !e.IsDir() {
			continue
		}
		var n uint64
		if _, err := fmt.Sscanf(e.Name(), "%d", &n); err != nil {
			continue
		}
		buckets = append(buckets, n)
	}
	if len(buckets) == 0 {
		return 0, errNoBlockData
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i] > buckets[j]
	})
	return buckets[0], nil
}

// LatestFromBlock returns the first block of the latest written block data.
func (f *Fetcher) LatestFromBlock() (uint64, error) {
	bucket, err := f.LatestBlockBucket()
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(transformer.BlockDataFilename(f.cfg.BlockData, bucket))
	es, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir: %w", err)
	}
	var froms []uint64
	for _, e := range es {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var from uint64
		if _, err := fmt.Sscanf(e.Name(), "%d.json", &from); err != nil {
			continue
		}
		froms = append(froms, from)
	}
	if len(froms) == 0 {
		return 0, errNoBlockData
	}
	sort.Slice(froms, func(i, j int) bool {
		return froms[i] > froms[j]
	})
	return froms[0], nil
}
