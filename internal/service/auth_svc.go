package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/pkg/shopee"
)

// AuthService 店铺凭证管理
// 实现 shopee.CredentialSource：Client 发现凭证失效时回调 Refresh
type AuthService struct {
	ShopRepo repository.ShopRepository
	client   *shopee.Client

	// 每店铺一把刷新锁：并发调用同时观察到凭证过期时，
	// 只允许一个协程打远端刷新接口，其余等待后复用结果
	refreshLocks sync.Map // shopID -> *refreshEntry
}

type refreshEntry struct {
	mu          sync.Mutex
	lastRefresh time.Time
}

// NewAuthService 工厂方法
// Client 依赖 AuthService 作为凭证来源，需在 Client 创建后通过 SetClient 回填
func NewAuthService(shopRepo repository.ShopRepository) *AuthService {
	return &AuthService{ShopRepo: shopRepo}
}

// SetClient 回填客户端（解决与 Client 的相互依赖）
func (s *AuthService) SetClient(client *shopee.Client) {
	s.client = client
}

// Credential 取当前凭证（shopee.CredentialSource 实现）
func (s *AuthService) Credential(ctx context.Context, shopID int64) (*shopee.Credential, error) {
	shop, err := s.ShopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("店铺不存在: %w", err)
	}
	if shop.Partner == nil {
		return nil, fmt.Errorf("店铺 %d 未绑定合作方应用", shopID)
	}
	return &shopee.Credential{
		ShopeeShopID: shop.ShopeeShopID,
		PartnerID:    shop.Partner.ShopeePartnerID,
		PartnerKey:   shop.Partner.PartnerKey,
		AccessToken:  shop.AccessToken,
	}, nil
}

// Refresh 刷新凭证并持久化（shopee.CredentialSource 实现）
// 同店铺串行；30 秒内刚刷新过则直接复用库里的新凭证，不再打远端
func (s *AuthService) Refresh(ctx context.Context, shopID int64) (*shopee.Credential, error) {
	actual, _ := s.refreshLocks.LoadOrStore(shopID, &refreshEntry{})
	entry := actual.(*refreshEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if time.Since(entry.lastRefresh) < 30*time.Second {
		return s.Credential(ctx, shopID)
	}

	shop, err := s.ShopRepo.GetByID(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("店铺不存在: %w", err)
	}
	if err := s.RefreshShopToken(ctx, shop); err != nil {
		return nil, err
	}

	entry.lastRefresh = time.Now()
	return &shopee.Credential{
		ShopeeShopID: shop.ShopeeShopID,
		PartnerID:    shop.Partner.ShopeePartnerID,
		PartnerKey:   shop.Partner.PartnerKey,
		AccessToken:  shop.AccessToken,
	}, nil
}

// RefreshShopToken 调用 Shopee 刷新接口并回写凭证
// 远端明确拒绝时把店铺标记为失效，等待人工重新授权
func (s *AuthService) RefreshShopToken(ctx context.Context, shop *model.Shop) error {
	if shop.Partner == nil {
		return fmt.Errorf("店铺 %d 未绑定合作方应用", shop.ID)
	}
	if shop.RefreshToken == "" {
		return fmt.Errorf("店铺 %d 无 refresh_token", shop.ID)
	}

	resp, err := s.client.RefreshAccessToken(
		ctx,
		shop.Partner.ShopeePartnerID,
		shop.Partner.PartnerKey,
		shop.ShopeeShopID,
		shop.RefreshToken,
	)
	if err != nil {
		// 明确的业务拒绝才标记失效，网络抖动不动状态
		if apiErr, ok := err.(*shopee.APIError); ok {
			if stErr := s.ShopRepo.UpdateTokenStatus(ctx, shop.ID, model.TokenStatusInvalid); stErr != nil {
				log.Printf("[Auth] 店铺 %d 标记失效失败: %v", shop.ID, stErr)
			}
			return fmt.Errorf("刷新被拒绝 [%s]: %s", apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("刷新请求失败: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(resp.ExpireIn) * time.Second)
	if err := s.ShopRepo.UpdateTokens(ctx, shop.ID, resp.AccessToken, resp.RefreshToken, expiresAt); err != nil {
		return fmt.Errorf("凭证入库失败: %w", err)
	}

	// 同步内存对象，调用方可直接继续使用
	shop.AccessToken = resp.AccessToken
	shop.RefreshToken = resp.RefreshToken
	shop.TokenExpiresAt = expiresAt
	shop.TokenStatus = model.TokenStatusActive
	return nil
}
