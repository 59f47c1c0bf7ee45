package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"anyvidow/client/internal/models"
)

// 服务器接口路径
const (
	fetchInfoEndpoint = "/api/fetch_info"
	cancelEndpoint    = "/cancel_download"
)

// APIClient 服务器普通接口客户端(信息查询、取消)
type APIClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewAPIClient 创建接口客户端
func NewAPIClient(baseURL string, timeout time.Duration, rps float64, burst int, logger *zap.Logger) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
	}
}

// infoEnvelope 信息接口响应的判别外壳
type infoEnvelope struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// FetchInfo 查询媒体信息,按type字段判别单视频或播放列表
func (c *APIClient) FetchInfo(ctx context.Context, mediaURL string) (*models.InfoResult, error) {
	// 信息接口限流,避免打爆解析后端
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	body, err := json.Marshal(map[string]string{"url": mediaURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fetchInfoEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch info request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// 服务器把业务错误放在error字段里,HTTP状态码不一定非200
	var envelope infoEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch info failed: %s", resp.Status)
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("fetch info failed: %s", envelope.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch info failed: %s", resp.Status)
	}

	if envelope.Type == "playlist" {
		var playlist models.PlaylistInfo
		if err := json.Unmarshal(data, &playlist); err != nil {
			return nil, fmt.Errorf("failed to parse playlist info: %w", err)
		}
		c.logger.Info("fetched playlist info",
			zap.String("title", playlist.Title),
			zap.Int("video_count", playlist.VideoCount))
		return &models.InfoResult{Playlist: &playlist}, nil
	}

	var video models.VideoInfo
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to parse video info: %w", err)
	}
	c.logger.Info("fetched video info",
		zap.String("title", video.Title),
		zap.String("platform", video.Platform))
	return &models.InfoResult{Video: &video}, nil
}

// CancelDownload 请求服务器取消一个会话。
// 只带session_id,响应除成功与否外不做解读。
func (c *APIClient) CancelDownload(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+cancelEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cancel request rejected: %s", resp.Status)
	}
	return nil
}
