package shopee

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 错误定义 ====================

var (
	// ErrAuthExpired 刷新后重试仍被拒绝，凭证不可用
	ErrAuthExpired = errors.New("shopee: access token expired")
	// ErrRateLimited 触发平台限流 (429 / error_request_limit)
	ErrRateLimited = errors.New("shopee: rate limited")
)

// APIError Shopee 业务错误
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopee api error [%s]: %s", e.Code, e.Message)
}

// isAuthError 平台明确的"凭证无效"错误码
func isAuthError(code string) bool {
	switch code {
	case "error_auth", "invalid_access_token", "error_permission":
		return true
	}
	return false
}

func isRateLimitError(code string) bool {
	return code == "error_request_limit"
}

// ==================== 凭证来源 ====================

// Credential 一次调用所需的完整签名材料
type Credential struct {
	ShopeeShopID int64
	PartnerID    int64
	PartnerKey   string
	AccessToken  string
}

// CredentialSource 提供/刷新凭证
// 刷新的互斥与持久化由业务层实现，Client 只负责"失效时刷新一次并重放"
type CredentialSource interface {
	Credential(ctx context.Context, shopID int64) (*Credential, error)
	Refresh(ctx context.Context, shopID int64) (*Credential, error)
}

// respEnvelope 可检查外壳错误的响应
type respEnvelope interface {
	Err() (code, msg string)
}

// ==================== Client ====================

// Client Shopee OpenAPI 客户端
// 同一个 Client 内所有调用共享固定最小间隔，保证不超过平台 QPS 配额
type Client struct {
	http  *resty.Client
	creds CredentialSource

	minInterval time.Duration
	mu          sync.Mutex
	lastCall    time.Time
}

// NewClient 创建客户端
// baseURL 形如 https://partner.shopeemobile.com
func NewClient(baseURL string, creds CredentialSource) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
		creds:       creds,
		minInterval: 300 * time.Millisecond,
	}
}

// SetMinInterval 设置最小调用间隔
func (c *Client) SetMinInterval(d time.Duration) {
	c.minInterval = d
}

// throttle 固定间隔节流，等待期间响应 ctx 取消
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.minInterval - now.Sub(c.lastCall)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = now.Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sign 店铺级签名: HMAC-SHA256(partner_key, partner_id+path+timestamp+access_token+shop_id)
func sign(cred *Credential, path string, ts int64) string {
	base := fmt.Sprintf("%d%s%d%s%d", cred.PartnerID, path, ts, cred.AccessToken, cred.ShopeeShopID)
	mac := hmac.New(sha256.New, []byte(cred.PartnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// signPublic 合作方级签名（无 access_token，用于换取/刷新令牌）
func signPublic(partnerID int64, partnerKey, path string, ts int64) string {
	base := fmt.Sprintf("%d%s%d", partnerID, path, ts)
	mac := hmac.New(sha256.New, []byte(partnerKey))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

// Call 发起一次签名请求并解析到 out
// 收到明确的凭证失效错误时，回调 CredentialSource.Refresh 刷新一次并原样重放；
// 第二次仍失败则返回 ErrAuthExpired，不再继续重试（防止刷新死循环）
func (c *Client) Call(ctx context.Context, shopID int64, path string, params map[string]string, out respEnvelope) error {
	cred, err := c.creds.Credential(ctx, shopID)
	if err != nil {
		return fmt.Errorf("credential source: %w", err)
	}

	err = c.doSigned(ctx, cred, path, params, out)
	if !errors.Is(err, errAuthOnce) {
		return err
	}

	// 凭证失效：刷新一次并重放同一请求
	cred, err = c.creds.Refresh(ctx, shopID)
	if err != nil {
		return fmt.Errorf("%w: refresh failed: %v", ErrAuthExpired, err)
	}

	err = c.doSigned(ctx, cred, path, params, out)
	if errors.Is(err, errAuthOnce) {
		return ErrAuthExpired
	}
	return err
}

// errAuthOnce 内部标记：本次调用被平台判定凭证无效（还有刷新机会）
var errAuthOnce = errors.New("shopee: auth rejected")

// doSigned 单次签名请求
func (c *Client) doSigned(ctx context.Context, cred *Credential, path string, params map[string]string, out respEnvelope) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}

	ts := time.Now().Unix()
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"partner_id":   strconv.FormatInt(cred.PartnerID, 10),
			"timestamp":    strconv.FormatInt(ts, 10),
			"access_token": cred.AccessToken,
			"shop_id":      strconv.FormatInt(cred.ShopeeShopID, 10),
			"sign":         sign(cred, path, ts),
		}).
		SetQueryParams(params)

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("shopee request failed: %w", err)
	}

	if resp.StatusCode() == 429 {
		return ErrRateLimited
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return errAuthOnce
	}
	if resp.StatusCode() != 200 {
		return &APIError{Code: strconv.Itoa(resp.StatusCode()), Message: resp.String()}
	}

	// 自行解析响应体，不依赖 Content-Type（网关偶尔会吞掉该头）；
	// 200 但解出来不是平台外壳的，按传输错误上抛，绝不当空结果用
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("shopee response decode failed: %w", err)
	}

	if code, msg := out.Err(); code != "" {
		if isAuthError(code) {
			return errAuthOnce
		}
		if isRateLimitError(code) {
			return ErrRateLimited
		}
		return &APIError{Code: code, Message: msg}
	}
	return nil
}

// RefreshAccessToken 调用令牌刷新接口（合作方级签名，不经过 Call 的刷新分支）
func (c *Client) RefreshAccessToken(ctx context.Context, partnerID int64, partnerKey string, shopeeShopID int64, refreshToken string) (*RefreshTokenResp, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	const path = "/api/v2/auth/access_token/get"
	ts := time.Now().Unix()

	var out RefreshTokenResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"partner_id": strconv.FormatInt(partnerID, 10),
			"timestamp":  strconv.FormatInt(ts, 10),
			"sign":       signPublic(partnerID, partnerKey, path, ts),
		}).
		SetBody(map[string]interface{}{
			"shop_id":       shopeeShopID,
			"refresh_token": refreshToken,
			"partner_id":    partnerID,
		}).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, &APIError{Code: strconv.Itoa(resp.StatusCode()), Message: resp.String()}
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("refresh response decode failed: %w", err)
	}
	if out.Error != "" {
		return nil, &APIError{Code: out.Error, Message: out.Message}
	}
	// 空令牌绝不能当刷新成功落库，否则会毁掉一对还有效的凭证；
	// 按传输异常处理（不是 APIError），当前 refresh_token 仍然有效
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("shopee: refresh response missing tokens")
	}
	return &out, nil
}

// ==================== 业务封装 ====================

// GetItemList 拉取一页商品 ID
// updateTimeFrom > 0 时要求远端按修改时间过滤（增量用）
func (c *Client) GetItemList(ctx context.Context, shopID int64, status string, offset, pageSize int, updateTimeFrom int64) (*GetItemListResp, error) {
	params := map[string]string{
		"item_status": status,
		"offset":      strconv.Itoa(offset),
		"page_size":   strconv.Itoa(pageSize),
	}
	if updateTimeFrom > 0 {
		params["update_time_from"] = strconv.FormatInt(updateTimeFrom, 10)
	}
	var out GetItemListResp
	if err := c.Call(ctx, shopID, "/api/v2/product/get_item_list", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetItemBaseInfo 批量拉取商品详情（一批最多 50 个）
func (c *Client) GetItemBaseInfo(ctx context.Context, shopID int64, itemIDs []int64) (*GetItemBaseInfoResp, error) {
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	params := map[string]string{
		"item_id_list": strings.Join(ids, ","),
	}
	var out GetItemBaseInfoResp
	if err := c.Call(ctx, shopID, "/api/v2/product/get_item_base_info", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetModelList 拉取单个商品的完整变体与规格层级
func (c *Client) GetModelList(ctx context.Context, shopID int64, itemID int64) (*GetModelListResp, error) {
	params := map[string]string{
		"item_id": strconv.FormatInt(itemID, 10),
	}
	var out GetModelListResp
	if err := c.Call(ctx, shopID, "/api/v2/product/get_model_list", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
