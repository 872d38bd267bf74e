package transformer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/util"
)

const steleEventsABIJSON = `[
	{"type":"event","name":"SteleCreated","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":false},
		{"name":"usdToken","type":"address","indexed":false},
		{"name":"maxAssets","type":"uint8","indexed":false},
		{"name":"seedMoney","type":"uint256","indexed":false},
		{"name":"entryFee","type":"uint256","indexed":false},
		{"name":"rewardRatio","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"AddToken","anonymous":false,"inputs":[
		{"name":"tokenAddress","type":"address","indexed":false}]},
	{"type":"event","name":"RemoveToken","anonymous":false,"inputs":[
		{"name":"tokenAddress","type":"address","indexed":false}]},
	{"type":"event","name":"Create","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"challengeType","type":"uint8","indexed":false},
		{"name":"seedMoney","type":"uint256","indexed":false},
		{"name":"entryFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"Join","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"user","type":"address","indexed":false},
		{"name":"seedMoney","type":"uint256","indexed":false}]},
	{"type":"event","name":"Swap","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"user","type":"address","indexed":false},
		{"name":"fromAsset","type":"address","indexed":false},
		{"name":"toAsset","type":"address","indexed":false},
		{"name":"fromAmount","type":"uint256","indexed":false},
		{"name":"toAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Register","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"user","type":"address","indexed":false},
		{"name":"performance","type":"uint256","indexed":false}]},
	{"type":"event","name":"Reward","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"user","type":"address","indexed":false},
		{"name":"rewardAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"RewardRatio","anonymous":false,"inputs":[
		{"name":"newRewardRatio","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"SeedMoney","anonymous":false,"inputs":[
		{"name":"newSeedMoney","type":"uint256","indexed":false}]},
	{"type":"event","name":"EntryFee","anonymous":false,"inputs":[
		{"name":"newEntryFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"MaxAssets","anonymous":false,"inputs":[
		{"name":"newMaxAssets","type":"uint8","indexed":false}]},
	{"type":"event","name":"OwnershipTransferred","anonymous":false,"inputs":[
		{"name":"previousOwner","type":"address","indexed":true},
		{"name":"newOwner","type":"address","indexed":true}]},
	{"type":"event","name":"SteleTokenBonus","anonymous":false,"inputs":[
		{"name":"challengeId","type":"uint256","indexed":false},
		{"name":"user","type":"address","indexed":true},
		{"name":"action","type":"string","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

var ErrUnknownEvent = errors.New("unknown event")

// Event is a decoded contract log.
type Event struct {
	Name    string
	Meta    schema.EventMeta
	Params  map[string]interface{}
	Payload interface{}
}

// Record returns the raw form of the event for storage.
func (ev Event) Record() schema.EventRecord {
	params := make(map[string]string, len(ev.Params))
	for k, v := range ev.Params {
		params[k] = paramString(v)
	}
	return schema.EventRecord{
		ID:              ev.Meta.RecordID(),
		Type:            ev.Name,
		BlockNumber:     ev.Meta.BlockNumber,
		BlockTimestamp:  ev.Meta.BlockTimestamp,
		TransactionHash: strings.ToLower(ev.Meta.TxHash.Hex()),
		LogIndex:        ev.Meta.LogIndex,
		Params:          params,
	}
}

func paramString(v interface{}) string {
	switch v := v.(type) {
	case common.Address:
		return util.Addr(v)
	case *big.Int:
		return v.String()
	case []*big.Int:
		ss := make([]string, len(v))
		for i, x := range v {
			ss[i] = x.String()
		}
		return strings.Join(ss, ",")
	default:
		return fmt.Sprint(v)
	}
}

type Decoder struct {
	events map[common.Hash]abi.Event
}

func NewDecoder() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(steleEventsABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	d := &Decoder{events: make(map[common.Hash]abi.Event)}
	for _, ev := range parsed.Events {
		d.events[ev.ID] = ev
	}
	return d, nil
}

// Decode decodes a contract log. It returns ErrUnknownEvent for logs the
// decoder has no definition for.
func (d *Decoder) Decode(l BlockLog) (Event, error) {
	if len(l.Topics) == 0 {
		return Event{}, ErrUnknownEvent
	}
	def, ok := d.events[l.Topics[0]]
	if !ok {
		return Event{}, ErrUnknownEvent
	}
	params := make(map[string]interface{})
	if err := def.Inputs.UnpackIntoMap(params, l.Data); err != nil {
		return Event{}, fmt.Errorf("unpack %s data: %w", def.Name, err)
	}
	var indexed abi.Arguments
	for _, arg := range def.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(params, indexed, l.Topics[1:]); err != nil {
		return Event{}, fmt.Errorf("parse %s topics: %w", def.Name, err)
	}
	ev := Event{
		Name: def.Name,
		Meta: schema.EventMeta{
			BlockNumber:    l.BlockNumber,
			BlockTimestamp: l.BlockTimestamp,
			TxHash:         l.TxHash,
			LogIndex:       l.Index,
		},
		Params: params,
	}
	payload, err := payloadFromParams(ev.Name, ev.Meta, eventParams(params))
	if err != nil {
		return Event{}, fmt.Errorf("decode %s: %w", def.Name, err)
	}
	ev.Payload = payload
	return ev, nil
}

type eventParams map[string]interface{}

func (p eventParams) get(name string) (interface{}, error) {
	v, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("param %q not found", name)
	}
	return v, nil
}

func (p eventParams) Address(name string) (common.Address, error) {
	v, err := p.get(name)
	if err != nil {
		return common.Address{}, err
	}
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("param %q is %T, not an address", name, v)
	}
	return a, nil
}

func (p eventParams) Uint(name string) (*big.Int, error) {
	v, err := p.get(name)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	}
	return nil, fmt.Errorf("param %q is %T, not an unsigned integer", name, v)
}

func (p eventParams) Uints(name string) ([]*big.Int, error) {
	v, err := p.get(name)
	if err != nil {
		return nil, err
	}
	xs, ok := v.([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("param %q is %T, not an unsigned integer array", name, v)
	}
	return xs, nil
}

func (p eventParams) String(name string) (string, error) {
	v, err := p.get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q is %T, not a string", name, v)
	}
	return s, nil
}

// paramReader collects the first error of a sequence of param reads.
type paramReader struct {
	p   eventParams
	err error
}

func (r *paramReader) address(name string) common.Address {
	if r.err != nil {
		return common.Address{}
	}
	var a common.Address
	a, r.err = r.p.Address(name)
	return a
}

func (r *paramReader) uint(name string) *big.Int {
	if r.err != nil {
		return nil
	}
	var x *big.Int
	x, r.err = r.p.Uint(name)
	return x
}

func (r *paramReader) uints(name string) []*big.Int {
	if r.err != nil {
		return nil
	}
	var xs []*big.Int
	xs, r.err = r.p.Uints(name)
	return xs
}

func (r *paramReader) string(name string) string {
	if r.err != nil {
		return ""
	}
	var s string
	s, r.err = r.p.String(name)
	return s
}

func payloadFromParams(name string, meta schema.EventMeta, p eventParams) (interface{}, error) {
	r := &paramReader{p: p}
	var payload interface{}
	switch name {
	case schema.EventSteleCreated:
		payload = schema.SteleCreatedEvent{
			EventMeta:   meta,
			Owner:       r.address("owner"),
			USDToken:    r.address("usdToken"),
			MaxAssets:   r.uint("maxAssets"),
			SeedMoney:   r.uint("seedMoney"),
			EntryFee:    r.uint("entryFee"),
			RewardRatio: r.uints("rewardRatio"),
		}
	case schema.EventAddToken:
		payload = schema.AddTokenEvent{EventMeta: meta, Token: r.address("tokenAddress")}
	case schema.EventRemoveToken:
		payload = schema.RemoveTokenEvent{EventMeta: meta, Token: r.address("tokenAddress")}
	case schema.EventCreate:
		ev := schema.CreateEvent{
			EventMeta:   meta,
			ChallengeID: r.uint("challengeId"),
			SeedMoney:   r.uint("seedMoney"),
			EntryFee:    r.uint("entryFee"),
		}
		if t := r.uint("challengeType"); t != nil {
			if t.IsInt64() && t.Int64() < schema.NumChallengeTypes {
				ev.ChallengeType = schema.ChallengeType(t.Int64())
			} else {
				ev.ChallengeType = -1
			}
		}
		payload = ev
	case schema.EventJoin:
		payload = schema.JoinEvent{
			EventMeta:   meta,
			ChallengeID: r.uint("challengeId"),
			User:        r.address("user"),
			SeedMoney:   r.uint("seedMoney"),
		}
	case schema.EventSwap:
		payload = schema.SwapEvent{
			EventMeta:   meta,
			ChallengeID: r.uint("challengeId"),
			User:        r.address("user"),
			FromAsset:   r.address("fromAsset"),
			ToAsset:     r.address("toAsset"),
			FromAmount:  r.uint("fromAmount"),
			ToAmount:    r.uint("toAmount"),
		}
	case schema.EventRegister:
		payload = schema.RegisterEvent{
			EventMeta:   meta,
			ChallengeID: r.uint("challengeId"),
			User:        r.address("user"),
			Performance: r.uint("performance"),
		}
	case schema.EventReward:
		payload = schema.RewardEvent{
			EventMeta:    meta,
			ChallengeID:  r.uint("challengeId"),
			User:         r.address("user"),
			RewardAmount: r.uint("rewardAmount"),
		}
	case schema.EventRewardRatio:
		payload = schema.RewardRatioEvent{EventMeta: meta, NewRatio: r.uints("newRewardRatio")}
	case schema.EventSeedMoney:
		payload = schema.SeedMoneyEvent{EventMeta: meta, NewSeedMoney: r.uint("newSeedMoney")}
	case schema.EventEntryFee:
		payload = schema.EntryFeeEvent{EventMeta: meta, NewEntryFee: r.uint("newEntryFee")}
	case schema.EventMaxAssets:
		payload = schema.MaxAssetsEvent{EventMeta: meta, NewMaxAssets: r.uint("newMaxAssets")}
	case schema.EventOwnershipTransferred:
		payload = schema.OwnershipTransferredEvent{
			EventMeta:     meta,
			PreviousOwner: r.address("previousOwner"),
			NewOwner:      r.address("newOwner"),
		}
	case schema.EventSteleTokenBonus:
		payload = schema.SteleTokenBonusEvent{
			EventMeta:   meta,
			ChallengeID: r.uint("challengeId"),
			User:        r.address("user"),
			Action:      r.string("action"),
			Amount:      r.uint("amount"),
		}
	default:
		return nil, ErrUnknownEvent
	}
	if r.err != nil {
		return nil, r.err
	}
	return payload, nil
}
