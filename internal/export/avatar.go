package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const avatarFetchTimeout = 5 * time.Second

// 头像最大内联体积，超过则保留原始 URL。
const avatarMaxBytes = 4 << 20

// inlineRemoteAvatar 将 http(s) 头像抓取并转为 data URL。
// data:/blob:/相对路径不处理；任何失败都保留原值，调用方不感知。
func inlineRemoteAvatar(ctx context.Context, avatarURL string) (string, bool) {
	lower := strings.ToLower(avatarURL)
	if strings.HasPrefix(lower, "data:") {
		return avatarURL, true
	}
	if strings.HasPrefix(lower, "blob:") {
		// blob: 无法跨上下文解引用。
		return "", false
	}
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return avatarURL, true
	}

	ctx, cancel := context.WithTimeout(ctx, avatarFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, avatarMaxBytes+1))
	if err != nil || len(data) > avatarMaxBytes {
		return "", false
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), true
}
