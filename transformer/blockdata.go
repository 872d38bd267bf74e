package transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/b-harvest/stele-backend/config"
)

// BlockData is a contiguous range of blocks with the contract's logs.
// Blocks without logs may be omitted.
type BlockData struct {
	FromBlock uint64  `json:"from_block"`
	ToBlock   uint64  `json:"to_block"`
	Blocks    []Block `json:"blocks"`
}

type Block struct {
	Number    uint64      `json:"number"`
	Timestamp int64       `json:"timestamp"`
	Logs      []types.Log `json:"logs"`
}

// BlockLog is a log together with the timestamp of its block.
type BlockLog struct {
	types.Log
	BlockTimestamp int64
}

// Logs returns the non-removed logs emitted by addr, ordered by block
// number and log index.
func (d *BlockData) Logs(addr common.Address) []BlockLog {
	var ls []BlockLog
	for _, b := range d.Blocks {
		for _, l := range b.Logs {
			if l.Removed || l.Address != addr {
				continue
			}
			ls = append(ls, BlockLog{Log: l, BlockTimestamp: b.Timestamp})
		}
	}
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].BlockNumber != ls[j].BlockNumber {
			return ls[i].BlockNumber < ls[j].BlockNumber
		}
		return ls[i].Index < ls[j].Index
	})
	return ls
}

// BlockDataFilename returns the file holding the block data that starts at
// fromBlock.
func BlockDataFilename(cfg config.BlockDataConfig, fromBlock uint64) string {
	bs := uint64(cfg.BucketSize)
	p := fromBlock / bs * bs
	return filepath.Join(cfg.Dir, fmt.Sprintf(cfg.Filename, p, fromBlock))
}

type BlockDataDecodeError struct {
	Err error
}

func (err *BlockDataDecodeError) Error() string {
	return err.Err.Error()
}

func (err *BlockDataDecodeError) Unwrap() error {
	return err.Err
}

func ReadBlockData(cfg config.BlockDataConfig, fromBlock uint64) (*BlockData, error) {
	f, err := os.Open(BlockDataFilename(cfg, fromBlock))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var data BlockData
	if err := jsonit.NewDecoder(f).Decode(&data); err != nil {
		return nil, &BlockDataDecodeError{err}
	}
	return &data, nil
}

// WriteBlockData writes the data atomically, so that readers never see a
// partially written file.
func WriteBlockData(cfg config.BlockDataConfig, data *BlockData) error {
	name := BlockDataFilename(cfg, data.FromBlock)
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return fmt.Errorf("make dir: %w", err)
	}
	b, err := jsonit.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal block data: %w", err)
	}
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
