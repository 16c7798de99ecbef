package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "tandapool/pkg/domain"
	dErrors "tandapool/pkg/domain-errors"
)

// lockTTL bounds how long a crashed remitter can keep a group locked.
const lockTTL = time.Minute

// releaseScript deletes the lock only when the caller still owns it, so a
// slow remitter cannot release a lock that already expired and was retaken.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

type RedisLock struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, groupID id.GroupID) (func(), error) {
	key := "tandapool:remit-lock:" + groupID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire remit lock: %w", err)
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeStateViolation, "remittance already in progress for this group")
	}
	return func() {
		_ = l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err()
	}, nil
}
