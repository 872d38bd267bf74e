package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/b-harvest/stele-backend/schema"
)

// Kind identifies a class of stored entities.
type Kind string

const (
	KindToken                    Kind = "token"
	KindPool                     Kind = "pool"
	KindBundle                   Kind = "bundle"
	KindPriceCache               Kind = "priceCache"
	KindStele                    Kind = "stele"
	KindChallenge                Kind = "challenge"
	KindActiveChallenges         Kind = "activeChallenges"
	KindInvestor                 Kind = "investor"
	KindRanking                  Kind = "ranking"
	KindTotalRanking             Kind = "totalRanking"
	KindChallengeSnapshot        Kind = "challengeSnapshot"
	KindActiveChallengesSnapshot Kind = "activeChallengesSnapshot"
	KindInvestorSnapshot         Kind = "investorSnapshot"
	KindEvent                    Kind = "event"
)

var Kinds = []Kind{
	KindToken, KindPool, KindBundle, KindPriceCache, KindStele,
	KindChallenge, KindActiveChallenges, KindInvestor, KindRanking, KindTotalRanking,
	KindChallengeSnapshot, KindActiveChallengesSnapshot, KindInvestorSnapshot, KindEvent,
}

var ErrNotFound = errors.New("entity not found")

// Store loads and saves entities by key. Writes to different keys are
// independent; there are no transactions across keys.
type Store interface {
	Load(ctx context.Context, kind Kind, id string, v interface{}) error
	Save(ctx context.Context, kind Kind, id string, v interface{}) error
	Checkpoint(ctx context.Context) (schema.Checkpoint, error)
	SetLatestBlockNumber(ctx context.Context, blockNumber uint64) error
}

// Get loads an entity, returning nil if it does not exist.
func Get[T any](ctx context.Context, st Store, kind Kind, id string) (*T, error) {
	var v T
	if err := st.Load(ctx, kind, id, &v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s %q: %w", kind, id, err)
	}
	return &v, nil
}

func Put(ctx context.Context, st Store, kind Kind, id string, v interface{}) error {
	if err := st.Save(ctx, kind, id, v); err != nil {
		return fmt.Errorf("save %s %q: %w", kind, id, err)
	}
	return nil
}

type Service struct {
	cfg Config
	mc  *mongo.Client
}

var _ Store = (*Service)(nil)

func NewService(cfg Config, mc *mongo.Client) *Service {
	return &Service{cfg, mc}
}

func (s *Service) Database() *mongo.Database {
	return s.mc.Database(s.cfg.DB)
}

func (s *Service) CheckpointCollection() *mongo.Collection {
	return s.Database().Collection(s.cfg.CheckpointCollection)
}

func (s *Service) Collection(k Kind) *mongo.Collection {
	return s.Database().Collection(s.cfg.CollectionName(k))
}

func (s *Service) Ping(ctx context.Context) error {
	return s.mc.Ping(ctx, readpref.Primary())
}

func (s *Service) EnsureDBIndexes(ctx context.Context) ([]string, error) {
	var res []string
	for _, x := range []struct {
		coll *mongo.Collection
		is   []mongo.IndexModel
	}{
		{s.Collection(KindPool), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.PoolTokenAKey, Value: 1}, {Key: schema.PoolTokenBKey, Value: 1}}},
		}},
		{s.Collection(KindTotalRanking), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.TotalRankingChallengeIDKey, Value: 1}}},
			{Keys: bson.D{{Key: schema.TotalRankingUserKey, Value: 1}}},
		}},
		{s.Collection(KindChallengeSnapshot), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.SnapshotDayIDKey, Value: 1}}},
		}},
		{s.Collection(KindActiveChallengesSnapshot), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.SnapshotDayIDKey, Value: 1}}},
		}},
		{s.Collection(KindInvestorSnapshot), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.SnapshotDayIDKey, Value: 1}}},
		}},
		{s.Collection(KindEvent), []mongo.IndexModel{
			{Keys: bson.D{{Key: schema.EventTypeKey, Value: 1}}},
			{Keys: bson.D{{Key: schema.EventBlockNumberKey, Value: 1}}},
		}},
	} {
		names, err := x.coll.Indexes().CreateMany(ctx, x.is)
		if err != nil {
			return res, err
		}
		res = append(res, names...)
	}
	return res, nil
}

func (s *Service) Load(ctx context.Context, kind Kind, id string, v interface{}) error {
	if err := s.Collection(kind).FindOne(ctx, bson.M{"_id": id}).Decode(v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) Save(ctx context.Context, kind Kind, id string, v interface{}) error {
	if _, err := s.Collection(kind).ReplaceOne(ctx, bson.M{"_id": id}, v, options.Replace().SetUpsert(true)); err != nil {
		return err
	}
	return nil
}

func (s *Service) Checkpoint(ctx context.Context) (schema.Checkpoint, error) {
	var cp schema.Checkpoint
	if err := s.CheckpointCollection().FindOne(ctx, bson.M{
		schema.CheckpointBlockNumberKey: bson.M{"$exists": true},
	}).Decode(&cp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return schema.Checkpoint{}, nil
		}
		return schema.Checkpoint{}, err
	}
	return cp, nil
}

func (s *Service) SetLatestBlockNumber(ctx context.Context, blockNumber uint64) error {
	if _, err := s.CheckpointCollection().UpdateOne(ctx, bson.M{
		schema.CheckpointBlockNumberKey: bson.M{"$exists": true},
	}, bson.M{
		"$set": bson.M{
			schema.CheckpointBlockNumberKey: int64(blockNumber),
			schema.CheckpointTimestampKey:   time.Now(),
		},
	}, options.Update().SetUpsert(true)); err != nil {
		return err
	}
	return nil
}
