package store

import (
	"fmt"
)

type Config struct {
	DB                                 string `yaml:"db"`
	CheckpointCollection               string `yaml:"checkpoint_collection"`
	TokenCollection                    string `yaml:"token_collection"`
	PoolCollection                     string `yaml:"pool_collection"`
	BundleCollection                   string `yaml:"bundle_collection"`
	PriceCacheCollection               string `yaml:"price_cache_collection"`
	SteleCollection                    string `yaml:"stele_collection"`
	ChallengeCollection                string `yaml:"challenge_collection"`
	ActiveChallengesCollection         string `yaml:"active_challenges_collection"`
	InvestorCollection                 string `yaml:"investor_collection"`
	RankingCollection                  string `yaml:"ranking_collection"`
	TotalRankingCollection             string `yaml:"total_ranking_collection"`
	ChallengeSnapshotCollection        string `yaml:"challenge_snapshot_collection"`
	ActiveChallengesSnapshotCollection string `yaml:"active_challenges_snapshot_collection"`
	InvestorSnapshotCollection         string `yaml:"investor_snapshot_collection"`
	EventCollection                    string `yaml:"event_collection"`
}

var DefaultConfig = Config{
	DB:                                 "stele",
	CheckpointCollection:               "checkpoint",
	TokenCollection:                    "tokens",
	PoolCollection:                     "pools",
	BundleCollection:                   "bundles",
	PriceCacheCollection:               "priceCaches",
	SteleCollection:                    "steles",
	ChallengeCollection:                "challenges",
	ActiveChallengesCollection:         "activeChallenges",
	InvestorCollection:                 "investors",
	RankingCollection:                  "rankings",
	TotalRankingCollection:             "totalRankings",
	ChallengeSnapshotCollection:        "challengeSnapshots",
	ActiveChallengesSnapshotCollection: "activeChallengesSnapshots",
	InvestorSnapshotCollection:         "investorSnapshots",
	EventCollection:                    "events",
}

func (cfg Config) Validate() error {
	if cfg.DB == "" {
		return fmt.Errorf("'db' is required")
	}
	if cfg.CheckpointCollection == "" {
		return fmt.Errorf("'checkpoint_collection' is required")
	}
	seen := make(map[string]Kind)
	for _, k := range Kinds {
		name := cfg.CollectionName(k)
		if name == "" {
			return fmt.Errorf("collection name for %s is required", k)
		}
		if other, ok := seen[name]; ok {
			return fmt.Errorf("collection %q is used by both %s and %s", name, other, k)
		}
		seen[name] = k
	}
	return nil
}

func (cfg Config) CollectionName(k Kind) string {
	switch k {
	case KindToken:
		return cfg.TokenCollection
	case KindPool:
		return cfg.PoolCollection
	case KindBundle:
		return cfg.BundleCollection
	case KindPriceCache:
		return cfg.PriceCacheCollection
	case KindStele:
		return cfg.SteleCollection
	case KindChallenge:
		return cfg.ChallengeCollection
	case KindActiveChallenges:
		return cfg.ActiveChallengesCollection
	case KindInvestor:
		return cfg.InvestorCollection
	case KindRanking:
		return cfg.RankingCollection
	case KindTotalRanking:
		return cfg.TotalRankingCollection
	case KindChallengeSnapshot:
		return cfg.ChallengeSnapshotCollection
	case KindActiveChallengesSnapshot:
		return cfg.ActiveChallengesSnapshotCollection
	case KindInvestorSnapshot:
		return cfg.InvestorSnapshotCollection
	case KindEvent:
		return cfg.EventCollection
	default:
		return ""
	}
}
