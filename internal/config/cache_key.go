package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestPaperKey returns the cache key for a test's student-facing paper payload
func (r *CacheKeyStruct) TestPaperKey(testID string) string {
	return fmt.Sprintf("test:%s:paper", testID)
}

// AttemptStartKey returns the cache key for a user's attempt start timestamp
func (r *CacheKeyStruct) AttemptStartKey(testID string, userID int) string {
	return fmt.Sprintf("user:%d:test:%s:attempt_start", userID, testID)
}

// LeaderboardKey returns the sorted-set key holding a test's leaderboard
func (r *CacheKeyStruct) LeaderboardKey(testID string) string {
	return fmt.Sprintf("test:%s:leaderboard", testID)
}

// ResultsChannel returns the Redis PubSub channel for a test's live results
func (r *CacheKeyStruct) ResultsChannel(testID string) string {
	return fmt.Sprintf("test:%s:results", testID)
}

var CacheKey = NewCacheKeyStruct()
