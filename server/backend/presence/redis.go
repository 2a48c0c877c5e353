/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/logging"
)

const defaultKeyPrefix = "textsync:presence"

// RedisConfig is the configuration of the Redis presence store.
type RedisConfig struct {
	Address   string `yaml:"Address"`
	Password  string `yaml:"Password"`
	DB        int    `yaml:"DB"`
	KeyPrefix string `yaml:"KeyPrefix"`
}

// Validate validates this config.
func (c *RedisConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf(`"--redis-address" flag is required`)
	}
	if c.DB < 0 {
		return fmt.Errorf(`invalid argument "%d" for "--redis-db" flag`, c.DB)
	}
	return nil
}

// RedisStore is a Store shared by every server through Redis. The members of
// a document live in a hash of user ID to participant, and each member has
// a heartbeat key that expires after the TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// DialRedis connects to Redis and returns a RedisStore.
func DialRedis(conf *RedisConfig, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", conf.Address, err)
	}

	logging.DefaultLogger().Infof("Redis connected, address: %s", conf.Address)

	return NewRedisStore(rdb, conf.KeyPrefix, ttl), nil
}

// NewRedisStore creates a RedisStore on top of the given client.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) membersKey(docID string) string {
	return s.prefix + ":" + docID + ":members"
}

func (s *RedisStore) aliveKey(docID, userID string) string {
	return s.prefix + ":" + docID + ":alive:" + userID
}

// Put stores or refreshes the participant of the given document.
func (s *RedisStore) Put(ctx context.Context, docID string, participant types.Participant) error {
	if participant.UpdatedAt.IsZero() {
		participant.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("marshal participant %s: %w", participant.UserID, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, s.membersKey(docID), participant.UserID, data)
	pipe.Set(ctx, s.aliveKey(docID, participant.UserID), "1", s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put participant %s of %s: %w", participant.UserID, docID, err)
	}

	return nil
}

// Remove removes the user from the given document.
func (s *RedisStore) Remove(ctx context.Context, docID, userID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HDel(ctx, s.membersKey(docID), userID)
	pipe.Del(ctx, s.aliveKey(docID, userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove participant %s of %s: %w", userID, docID, err)
	}

	return nil
}

// List returns the live participants of the given document. Members whose
// heartbeat expired are dropped from the hash.
func (s *RedisStore) List(ctx context.Context, docID string) ([]types.Participant, error) {
	raws, err := s.rdb.HGetAll(ctx, s.membersKey(docID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants of %s: %w", docID, err)
	}
	if len(raws) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(raws))
	for userID := range raws {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	pipe := s.rdb.Pipeline()
	exists := make([]*redis.IntCmd, len(userIDs))
	for i, userID := range userIDs {
		exists[i] = pipe.Exists(ctx, s.aliveKey(docID, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check heartbeats of %s: %w", docID, err)
	}

	var expired []string
	participants := make([]types.Participant, 0, len(userIDs))
	for i, userID := range userIDs {
		if exists[i].Val() == 0 {
			expired = append(expired, userID)
			continue
		}

		var participant types.Participant
		if err := json.Unmarshal([]byte(raws[userID]), &participant); err != nil {
			return nil, fmt.Errorf("unmarshal participant %s: %w", userID, err)
		}
		participants = append(participants, participant)
	}

	if len(expired) > 0 {
		if err := s.rdb.HDel(ctx, s.membersKey(docID), expired...).Err(); err != nil {
			logging.From(ctx).Warnf("drop expired participants of %s: %v", docID, err)
		}
	}

	return participants, nil
}

// Clear removes every participant of the given document.
func (s *RedisStore) Clear(ctx context.Context, docID string) error {
	userIDs, err := s.rdb.HKeys(ctx, s.membersKey(docID)).Result()
	if err != nil {
		return fmt.Errorf("clear participants of %s: %w", docID, err)
	}

	keys := make([]string, 0, len(userIDs)+1)
	keys = append(keys, s.membersKey(docID))
	for _, userID := range userIDs {
		keys = append(keys, s.aliveKey(docID, userID))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear participants of %s: %w", docID, err)
	}

	return nil
}

// Close closes the connection to Redis.
func (s *RedisStore) Close() error {
	if err := s.rdb.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
