package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileClient 文件取回客户端。
// 浏览器里的"跳转取件"在这里落成把文件拉到本地目录。
type FileClient struct {
	httpClient *http.Client
	baseURL    string
	outputDir  string
	bufferSize int
	logger     *zap.Logger
}

// NewFileClient 创建文件取回客户端。
// 大文件传输时长不可预知,不设整体超时。
func NewFileClient(baseURL, outputDir string, bufferSize int, logger *zap.Logger) *FileClient {
	return &FileClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		outputDir:  outputDir,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Navigate 处理终态跳转: 把取件地址指向的文件保存到本地
func (c *FileClient) Navigate(ctx context.Context, target string) error {
	path, err := c.SaveFile(ctx, target)
	if err != nil {
		return err
	}
	c.logger.Info("file saved", zap.String("path", path))
	return nil
}

// SaveFile 下载取件地址指向的文件,返回本地路径
func (c *FileClient) SaveFile(ctx context.Context, target string) (string, error) {
	fullURL := target
	if strings.HasPrefix(target, "/") {
		fullURL = c.baseURL + target
	}

	name, err := fileNameFromURL(fullURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("file request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("file request rejected: %s", resp.Status)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(c.outputDir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	// 按配置的缓冲区流式写盘
	buffer := make([]byte, c.bufferSize)
	if _, err := io.CopyBuffer(out, resp.Body, buffer); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return path, nil
}

// fileNameFromURL 从取件地址的查询参数里取文件名
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid file url: %w", err)
	}

	q := u.Query()
	name := q.Get("filename")
	if name == "" {
		name = q.Get("zip_name")
	}
	if name == "" {
		return "", fmt.Errorf("file url missing filename: %s", rawURL)
	}

	// 去掉路径分隔符,防止写出目标目录
	return filepath.Base(name), nil
}
