package webhook

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"MarketLink/app/common/consts/biz"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
)

const (
	queueKeyPattern       = "webhook_queue:%d"
	membersKeyPattern     = "webhook_queue:%d:members"
	debounceKeyPattern    = "webhook_debounce:%d"
	dequeueLockKeyPattern = "webhook_dequeue_lock:%d"

	markerSeparator = "#"
)

//go:embed enqueue.lua
var enqueueScript string

//go:embed pop_batch.lua
var popBatchScript string

type (
	// Entry is one coalesced change marker. SellerId may be empty when the
	// webhook carried no seller information.
	Entry struct {
		SkuId    string
		SellerId string
	}

	// QueueModel is the per-app dedup queue of pending (sku, seller) change
	// markers plus its companion debounce marker and drain lock. At most one
	// live entry exists per marker; a repeat webhook before the drain
	// coalesces into the existing entry without losing the signal.
	QueueModel interface {
		Enqueue(ctx context.Context, appId int64, entry Entry) (bool, error)
		PopBatch(ctx context.Context, appId int64, limit int) ([]Entry, error)
		Len(ctx context.Context, appId int64) (int, error)
		MarkScheduled(ctx context.Context, appId int64) (bool, error)
		ClearScheduled(ctx context.Context, appId int64) error
		DequeueLock(appId int64) *redis.RedisLock
	}

	defaultQueueModel struct {
		redis      *redis.Redis
		enqueueSha string
		popSha     string
		mu         sync.Mutex
	}
)

func NewQueueModel(r *redis.Redis) QueueModel {
	return &defaultQueueModel{redis: r}
}

// Marker encodes the entry as it is stored in the queue.
func (e Entry) Marker() string {
	return e.SkuId + markerSeparator + e.SellerId
}

// ParseMarker is the inverse of Marker.
func ParseMarker(marker string) Entry {
	sku, seller, _ := strings.Cut(marker, markerSeparator)
	return Entry{SkuId: sku, SellerId: seller}
}

// Enqueue adds the entry's marker unless it is already pending. It reports
// whether a new entry was created.
func (m *defaultQueueModel) Enqueue(ctx context.Context, appId int64, entry Entry) (bool, error) {
	if entry.SkuId == "" {
		return false, ErrEmptySku
	}
	keys := []string{
		fmt.Sprintf(queueKeyPattern, appId),
		fmt.Sprintf(membersKeyPattern, appId),
	}
	result, err := m.evalScript(ctx, &m.enqueueSha, enqueueScript, keys, entry.Marker())
	if err != nil {
		return false, err
	}
	return toInt64(result) == 1, nil
}

func (m *defaultQueueModel) PopBatch(ctx context.Context, appId int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = biz.DefaultBatchSize
	}
	keys := []string{
		fmt.Sprintf(queueKeyPattern, appId),
		fmt.Sprintf(membersKeyPattern, appId),
	}
	result, err := m.evalScript(ctx, &m.popSha, popBatchScript, keys, limit)
	if err != nil {
		return nil, err
	}
	values, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected pop reply: %v", result)
	}
	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		entries = append(entries, ParseMarker(toString(v)))
	}
	return entries, nil
}

func (m *defaultQueueModel) Len(ctx context.Context, appId int64) (int, error) {
	return m.redis.LlenCtx(ctx, fmt.Sprintf(queueKeyPattern, appId))
}

// MarkScheduled sets the debounce marker. It returns false when a drain is
// already scheduled and not yet started.
func (m *defaultQueueModel) MarkScheduled(ctx context.Context, appId int64) (bool, error) {
	key := fmt.Sprintf(debounceKeyPattern, appId)
	return m.redis.SetnxExCtx(ctx, key, "1", int(biz.DebounceMarkerTTL/time.Second))
}

func (m *defaultQueueModel) ClearScheduled(ctx context.Context, appId int64) error {
	_, err := m.redis.DelCtx(ctx, fmt.Sprintf(debounceKeyPattern, appId))
	return err
}

// DequeueLock returns a fresh handle on the app's drain lock.
func (m *defaultQueueModel) DequeueLock(appId int64) *redis.RedisLock {
	lock := redis.NewRedisLock(m.redis, fmt.Sprintf(dequeueLockKeyPattern, appId))
	lock.SetExpire(int(biz.DequeueLockTTL / time.Second))
	return lock
}

func (m *defaultQueueModel) evalScript(ctx context.Context, shaRef *string, script string, keys []string, args ...any) (any, error) {
	m.mu.Lock()
	sha := *shaRef
	m.mu.Unlock()

	if sha == "" {
		if err := m.loadScript(ctx, shaRef, script); err != nil {
			return nil, err
		}
		m.mu.Lock()
		sha = *shaRef
		m.mu.Unlock()
	}

	result, err := m.redis.EvalShaCtx(ctx, sha, keys, args...)
	if err != nil && strings.Contains(err.Error(), "NOSCRIPT") {
		logx.WithContext(ctx).Slowf("redis script hash lost (%s), reloading", sha)
		if loadErr := m.loadScript(ctx, shaRef, script); loadErr != nil {
			return nil, loadErr
		}
		m.mu.Lock()
		sha = *shaRef
		m.mu.Unlock()
		result, err = m.redis.EvalShaCtx(ctx, sha, keys, args...)
	}
	return result, err
}

func (m *defaultQueueModel) loadScript(ctx context.Context, shaRef *string, script string) error {
	sha, err := m.redis.ScriptLoadCtx(ctx, script)
	if err != nil {
		return err
	}
	m.mu.Lock()
	*shaRef = sha
	m.mu.Unlock()
	return nil
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		var n int64
		_, _ = fmt.Sscan(val, &n)
		return n
	default:
		return 0
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
