package middleware

import (
	"testing"
	"time"
)

func TestSyncRateLimiter_Check(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := ShopSyncKey(1, SyncTypeIncremental)

	// 首次允许
	result := limiter.Check(key, time.Minute)
	if !result.Allowed {
		t.Fatal("首次检查应允许")
	}

	// 冷却期内拒绝
	result = limiter.Check(key, time.Minute)
	if result.Allowed {
		t.Fatal("冷却期内应拒绝")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, 应在 (0, 1m] 之间", result.RetryAfter)
	}

	// 不同店铺互不影响
	other := ShopSyncKey(2, SyncTypeIncremental)
	if !limiter.Check(other, time.Minute).Allowed {
		t.Error("不同店铺的限流键应互相独立")
	}

	// Reset 后重新允许
	limiter.Reset(key)
	if !limiter.Check(key, time.Minute).Allowed {
		t.Error("Reset 后应重新允许")
	}
}

func TestSyncRateLimiter_CheckOnly(t *testing.T) {
	limiter := &SyncRateLimiter{}
	key := ShopSyncKey(1, SyncTypeFull)

	// CheckOnly 不更新时间
	if !limiter.CheckOnly(key, time.Minute).Allowed {
		t.Fatal("未执行过的键 CheckOnly 应允许")
	}
	if !limiter.Check(key, time.Minute).Allowed {
		t.Fatal("CheckOnly 不应占用冷却窗口")
	}

	// 执行后 CheckOnly 能看到冷却
	if limiter.CheckOnly(key, time.Minute).Allowed {
		t.Error("执行后冷却期内 CheckOnly 应拒绝")
	}
}

func TestGetInterval(t *testing.T) {
	if GetInterval(SyncTypeFull) != 30*time.Minute {
		t.Errorf("full 间隔 = %v, want 30m", GetInterval(SyncTypeFull))
	}
	// 未配置的类型回落到默认值
	if GetInterval(SyncType("unknown")) != 5*time.Minute {
		t.Errorf("未知类型间隔 = %v, want 5m", GetInterval(SyncType("unknown")))
	}
}
