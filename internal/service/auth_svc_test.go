package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shopee_sync_v1_202608/internal/model"
	"shopee_sync_v1_202608/internal/repository"
	"shopee_sync_v1_202608/pkg/shopee"
)

func newAuthTestEnv(t *testing.T, handler http.HandlerFunc) (*AuthService, *model.Shop, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Partner{}, &model.Shop{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	partner := &model.Partner{Name: "测试应用", ShopeePartnerID: 12345, PartnerKey: "test-key", Status: 1}
	if err := db.Create(partner).Error; err != nil {
		t.Fatalf("写入合作方失败: %v", err)
	}
	shop := &model.Shop{
		ShopName: "测试店铺", Region: "SG", Status: 1,
		ShopeeShopID: 66001, PartnerID: partner.ID, Partner: partner,
		AccessToken: "old-token", RefreshToken: "old-refresh",
		TokenExpiresAt: time.Now().Add(10 * time.Minute),
		TokenStatus:    model.TokenStatusActive,
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("写入店铺失败: %v", err)
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	shopRepo := repository.NewShopRepository(db)
	authSvc := NewAuthService(shopRepo)
	client := shopee.NewClient(srv.URL, authSvc)
	client.SetMinInterval(0)
	authSvc.SetClient(client)

	return authSvc, shop, db
}

func TestAuthService_RefreshShopToken(t *testing.T) {
	var refreshCalls int
	svc, shop, db := newAuthTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		writeJSON(w, map[string]interface{}{
			"request_id": "r", "error": "",
			"access_token": "new-token", "refresh_token": "new-refresh", "expire_in": 14400,
		})
	})

	if err := svc.RefreshShopToken(context.Background(), shop); err != nil {
		t.Fatalf("RefreshShopToken() error = %v", err)
	}
	if refreshCalls != 1 {
		t.Errorf("远端刷新次数 = %d, want 1", refreshCalls)
	}

	// 内存对象已同步
	if shop.AccessToken != "new-token" || shop.RefreshToken != "new-refresh" {
		t.Errorf("内存凭证未同步: %s / %s", shop.AccessToken, shop.RefreshToken)
	}

	// 库里也已回写
	var stored model.Shop
	db.First(&stored, shop.ID)
	if stored.AccessToken != "new-token" {
		t.Errorf("库中 AccessToken = %s, want new-token", stored.AccessToken)
	}
	if stored.TokenStatus != model.TokenStatusActive {
		t.Errorf("TokenStatus = %d, want active", stored.TokenStatus)
	}
}

func TestAuthService_RefreshRejectedMarksInvalid(t *testing.T) {
	svc, shop, db := newAuthTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"request_id": "r",
			"error":      "invalid_refresh_token",
			"message":    "refresh_token invalid or expired",
		})
	})

	if err := svc.RefreshShopToken(context.Background(), shop); err == nil {
		t.Fatal("刷新被拒应返回错误")
	}

	var stored model.Shop
	db.First(&stored, shop.ID)
	if stored.TokenStatus != model.TokenStatusInvalid {
		t.Errorf("TokenStatus = %d, want invalid", stored.TokenStatus)
	}
}

func TestAuthService_RefreshCoalescing(t *testing.T) {
	var refreshCalls int
	svc, shop, _ := newAuthTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		writeJSON(w, map[string]interface{}{
			"request_id": "r", "error": "",
			"access_token": "new-token", "refresh_token": "new-refresh", "expire_in": 14400,
		})
	})

	// 连续两次 Refresh：第二次落在合并窗口内，直接复用库中凭证
	cred1, err := svc.Refresh(context.Background(), shop.ID)
	if err != nil {
		t.Fatalf("首次 Refresh() error = %v", err)
	}
	cred2, err := svc.Refresh(context.Background(), shop.ID)
	if err != nil {
		t.Fatalf("二次 Refresh() error = %v", err)
	}

	if refreshCalls != 1 {
		t.Errorf("远端刷新次数 = %d, want 1 (第二次应被合并)", refreshCalls)
	}
	if cred1.AccessToken != "new-token" || cred2.AccessToken != "new-token" {
		t.Errorf("两次应拿到同一凭证: %s / %s", cred1.AccessToken, cred2.AccessToken)
	}
}

func TestAuthService_Credential(t *testing.T) {
	svc, shop, _ := newAuthTestEnv(t, func(w http.ResponseWriter, r *http.Request) {})

	cred, err := svc.Credential(context.Background(), shop.ID)
	if err != nil {
		t.Fatalf("Credential() error = %v", err)
	}
	if cred.ShopeeShopID != 66001 || cred.PartnerID != 12345 {
		t.Errorf("凭证字段错误: %+v", cred)
	}
	if cred.PartnerKey != "test-key" || cred.AccessToken != "old-token" {
		t.Errorf("凭证字段错误: %+v", cred)
	}
}
