package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrGuard возвращается при ошибке хранилища отметок рассылки
var ErrGuard = errors.New("broadcast.guard: storage error")

const keyPrefix = "tutoring:broadcast:"

// RedisGuard помнит, каким преподавателям уже ушло приглашение по бронированию.
// Отметка ставится атомарно через SET NX с TTL
type RedisGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// MarkNotified возвращает true, если отметка поставлена впервые
func (g *RedisGuard) MarkNotified(ctx context.Context, bookingID, tutorID int64) (bool, error) {
	ok, err := g.client.SetNX(ctx, key(bookingID, tutorID), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: MarkNotified booking_id=%d tutor_id=%d: %v", ErrGuard, bookingID, tutorID, err)
	}
	return ok, nil
}

// Forget снимает отметку (если отправка не удалась и нужно повторить позже)
func (g *RedisGuard) Forget(ctx context.Context, bookingID, tutorID int64) error {
	if err := g.client.Del(ctx, key(bookingID, tutorID)).Err(); err != nil {
		return fmt.Errorf("%w: Forget booking_id=%d tutor_id=%d: %v", ErrGuard, bookingID, tutorID, err)
	}
	return nil
}

func key(bookingID, tutorID int64) string {
	return fmt.Sprintf("%s%d:%d", keyPrefix, bookingID, tutorID)
}

// MemoryGuard in-process вариант для одного инстанса и тестов.
// Отметки живут ttl, просроченные вычищаются не чаще раза в ttl
type MemoryGuard struct {
	mu        sync.Mutex
	ttl       time.Duration
	seen      map[[2]int64]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		ttl:  ttl,
		seen: make(map[[2]int64]time.Time),
		now:  time.Now,
	}
}

func (g *MemoryGuard) MarkNotified(_ context.Context, bookingID, tutorID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)

	k := [2]int64{bookingID, tutorID}
	if expires, ok := g.seen[k]; ok && (g.ttl <= 0 || now.Before(expires)) {
		return false, nil
	}
	g.seen[k] = now.Add(g.ttl)
	return true, nil
}

func (g *MemoryGuard) Forget(_ context.Context, bookingID, tutorID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.seen, [2]int64{bookingID, tutorID})
	return nil
}

// Len число живых и ещё не вычищенных отметок
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *MemoryGuard) sweep(now time.Time) {
	if g.ttl <= 0 || now.Sub(g.lastSweep) < g.ttl {
		return
	}
	for k, expires := range g.seen {
		if !now.Before(expires) {
			delete(g.seen, k)
		}
	}
	g.lastSweep = now
}
