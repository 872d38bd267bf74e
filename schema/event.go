package schema

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	EventSteleCreated         = "SteleCreated"
	EventAddToken             = "AddToken"
	EventRemoveToken          = "RemoveToken"
	EventCreate               = "Create"
	EventJoin                 = "Join"
	EventSwap                 = "Swap"
	EventRegister             = "Register"
	EventReward               = "Reward"
	EventRewardRatio          = "RewardRatio"
	EventSeedMoney            = "SeedMoney"
	EventEntryFee             = "EntryFee"
	EventMaxAssets            = "MaxAssets"
	EventOwnershipTransferred = "OwnershipTransferred"
	EventSteleTokenBonus      = "SteleTokenBonus"
)

// EventMeta locates an event in the chain.
type EventMeta struct {
	BlockNumber    uint64
	BlockTimestamp int64
	TxHash         common.Hash
	LogIndex       uint
}

func (m EventMeta) RecordID() string {
	return EventRecordID(m.TxHash.Hex(), m.LogIndex)
}

type SteleCreatedEvent struct {
	EventMeta
	Owner       common.Address
	USDToken    common.Address
	MaxAssets   *big.Int
	SeedMoney   *big.Int
	EntryFee    *big.Int
	RewardRatio []*big.Int
}

type AddTokenEvent struct {
	EventMeta
	Token common.Address
}

type RemoveTokenEvent struct {
	EventMeta
	Token common.Address
}

type CreateEvent struct {
	EventMeta
	ChallengeID   *big.Int
	ChallengeType ChallengeType
	SeedMoney     *big.Int
	EntryFee      *big.Int
}

type JoinEvent struct {
	EventMeta
	ChallengeID *big.Int
	User        common.Address
	SeedMoney   *big.Int
}

type SwapEvent struct {
	EventMeta
	ChallengeID *big.Int
	User        common.Address
	FromAsset   common.Address
	ToAsset     common.Address
	FromAmount  *big.Int
	ToAmount    *big.Int
}

type RegisterEvent struct {
	EventMeta
	ChallengeID *big.Int
	User        common.Address
	Performance *big.Int
}

type RewardEvent struct {
	EventMeta
	ChallengeID  *big.Int
	User         common.Address
	RewardAmount *big.Int
}

type RewardRatioEvent struct {
	EventMeta
	NewRatio []*big.Int
}

type SeedMoneyEvent struct {
	EventMeta
	NewSeedMoney *big.Int
}

type EntryFeeEvent struct {
	EventMeta
	NewEntryFee *big.Int
}

type MaxAssetsEvent struct {
	EventMeta
	NewMaxAssets *big.Int
}

type OwnershipTransferredEvent struct {
	EventMeta
	PreviousOwner common.Address
	NewOwner      common.Address
}

type SteleTokenBonusEvent struct {
	EventMeta
	ChallengeID *big.Int
	User        common.Address
	Action      string
	Amount      *big.Int
}
