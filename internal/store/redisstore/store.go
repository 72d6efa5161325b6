// Package redisstore persists service records in Redis.
//
// Each record is a hash under beacon:service:<id>. Registration and status
// updates run as Lua scripts so the uniqueness check, id assignment and
// writes happen atomically on the server.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/store"
)

// insertScript returns 0 when the name is taken, otherwise the new id.
//
// KEYS: seq, names, all. ARGV: name, status, period, last_update, key prefix.
var insertScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[1]) == 1 then
  return 0
end
local id = redis.call('INCR', KEYS[1])
redis.call('HSET', KEYS[2], ARGV[1], id)
redis.call('HSET', ARGV[5] .. id, 'name', ARGV[1], 'status', ARGV[2], 'period', ARGV[3], 'last_update', ARGV[4])
redis.call('ZADD', KEYS[3], id, id)
return id
`)

// updateScript returns the full hash after the write, or an empty reply
// when the record does not exist.
//
// KEYS: service key. ARGV: status, last_update.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {}
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'last_update', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

// Store handles Redis operations for service records
type Store struct {
	client *redis.Client
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Insert registers rec under a fresh id unless its name exists.
func (s *Store) Insert(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	res, err := insertScript.Run(ctx, s.client,
		[]string{KeyServiceSeq, KeyServiceNames, KeyAllServices},
		rec.Name,
		rec.Status,
		rec.Period,
		formatTime(rec.LastUpdate),
		KeyPrefixService,
	).Int64()
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("failed to save service: %w", err)
	}
	if res == 0 {
		return domain.ServiceRecord{}, fmt.Errorf("%w: %s", domain.ErrConflict, rec.Name)
	}

	rec.ID = res
	rec.LastUpdate = rec.LastUpdate.UTC()
	return rec, nil
}

// Get retrieves a service record from Redis by ID
func (s *Store) Get(ctx context.Context, id int64) (domain.ServiceRecord, error) {
	fields, err := s.client.HGetAll(ctx, ServiceKey(id)).Result()
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("failed to get service: %w", err)
	}
	if len(fields) == 0 {
		return domain.ServiceRecord{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return decodeRecord(id, fields)
}

// List retrieves all service records in id order
func (s *Store) List(ctx context.Context) ([]domain.ServiceRecord, error) {
	members, err := s.client.ZRange(ctx, KeyAllServices, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get service IDs: %w", err)
	}

	if len(members) == 0 {
		return []domain.ServiceRecord{}, nil
	}

	ids := make([]int64, 0, len(members))
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid service id %q in index: %w", member, err)
		}
		ids = append(ids, id)
		cmds = append(cmds, pipe.HGetAll(ctx, ServiceKey(id)))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}

	records := make([]domain.ServiceRecord, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Index entry without a hash; the record was never completed.
			continue
		}
		rec, err := decodeRecord(ids[i], fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// UpdateStatus overwrites status and last_update atomically.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string, at time.Time) (domain.ServiceRecord, error) {
	reply, err := updateScript.Run(ctx, s.client, []string{ServiceKey(id)}, status, formatTime(at)).StringSlice()
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("failed to update service status: %w", err)
	}
	if len(reply) == 0 {
		return domain.ServiceRecord{}, fmt.Errorf("%w: id %d", domain.ErrNotFound, id)
	}
	return decodeRecord(id, pairsToMap(reply))
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeRecord(id int64, fields map[string]string) (domain.ServiceRecord, error) {
	period, err := strconv.Atoi(fields["period"])
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("failed to decode period of service %d: %w", id, err)
	}
	last, err := time.Parse(time.RFC3339Nano, fields["last_update"])
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("failed to decode last_update of service %d: %w", id, err)
	}
	return domain.ServiceRecord{
		ID:         id,
		Name:       fields["name"],
		Status:     fields["status"],
		Period:     period,
		LastUpdate: last.UTC(),
	}, nil
}

// pairsToMap turns a flat HGETALL reply into a map.
func pairsToMap(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
