package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"echodao-backend/internal/model"

	"github.com/redis/go-redis/v9"
)

const detailTTL = 90 * 24 * time.Hour

// RedisStore keeps one list per user under proposals:<user> and, when the
// proposal id is known, a detail hash under proposal_detail:<user>:<id>
// that expires after 90 days.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, func() error, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, errors.New("failed to connect to redis: " + err.Error())
	}
	return NewRedisStore(client), client.Close, nil
}

func listKey(user string) string {
	return "proposals:" + user
}

func detailKey(user string, id uint64) string {
	return fmt.Sprintf("proposal_detail:%s:%d", user, id)
}

func (s *RedisStore) Records(ctx context.Context, user string) ([]model.CreationRecord, error) {
	entries, err := s.client.LRange(ctx, listKey(user), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]model.CreationRecord, 0, len(entries))
	for _, entry := range entries {
		var doc recordDoc
		if err := json.Unmarshal([]byte(entry), &doc); err != nil {
			// bare timestamps written by older deployments
			ts, terr := time.Parse(time.RFC3339Nano, entry)
			if terr != nil {
				return nil, fmt.Errorf("malformed entry in %s: %w", listKey(user), err)
			}
			doc = recordDoc{CreatedAt: ts}
		}
		records = append(records, doc.record())
	}
	return records, nil
}

func (s *RedisStore) Append(ctx context.Context, user string, record model.CreationRecord) error {
	doc := toDoc(record)
	entry, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, listKey(user), entry)

		if record.ProposalID != nil {
			key := detailKey(user, *record.ProposalID)
			pipe.HSet(ctx, key, map[string]interface{}{
				"proposal_id":  strconv.FormatUint(*record.ProposalID, 10),
				"tx_hash":      doc.TxHash,
				"amount_wei":   doc.AmountWei,
				"fee_paid_wei": doc.FeePaidWei,
				"is_free":      strconv.FormatBool(doc.IsFree),
				"created_at":   doc.CreatedAt.Format(time.RFC3339Nano),
			})
			pipe.Expire(ctx, key, detailTTL)
		}
		return nil
	})
	return err
}
