package schema

import (
	"fmt"
	"strings"
	"time"
)

type ChallengeType int

const (
	OneWeek ChallengeType = iota
	OneMonth
	ThreeMonths
	SixMonths
	OneYear

	NumChallengeTypes = 5
)

var challengeDurations = [NumChallengeTypes]time.Duration{
	OneWeek:     7 * 24 * time.Hour,
	OneMonth:    30 * 24 * time.Hour,
	ThreeMonths: 90 * 24 * time.Hour,
	SixMonths:   180 * 24 * time.Hour,
	OneYear:     365 * 24 * time.Hour,
}

func (t ChallengeType) Valid() bool {
	return t >= 0 && t < NumChallengeTypes
}

// Duration returns the length of a challenge of type t.
// It panics if t is not valid.
func (t ChallengeType) Duration() time.Duration {
	return challengeDurations[t]
}

func (t ChallengeType) String() string {
	switch t {
	case OneWeek:
		return "OneWeek"
	case OneMonth:
		return "OneMonth"
	case ThreeMonths:
		return "ThreeMonths"
	case SixMonths:
		return "SixMonths"
	case OneYear:
		return "OneYear"
	default:
		return fmt.Sprintf("ChallengeType(%d)", int(t))
	}
}

const secondsPerDay = 86400

// DayID returns the day bucket a unix timestamp falls into.
func DayID(ts int64) int64 {
	return ts / secondsPerDay
}

func InvestorID(challengeID, address string) string {
	return challengeID + "-" + strings.ToLower(address)
}

func DaySnapshotID(ownerID string, dayID int64) string {
	return fmt.Sprintf("%s-%d", ownerID, dayID)
}

func EventRecordID(txHash string, logIndex uint) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(txHash), logIndex)
}
