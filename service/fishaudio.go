package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFishAudioBase = "https://api.fish.audio"

type VoiceResult struct {
	URL string
}

// FishAudioClient 调用 Fish Audio 的 TTS 接口。接口直接返回 mp3 二进制，
// 上传到对象存储后返回预签名 URL；未配置对象存储时退回内联 data URL。
type FishAudioClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	assets     *AssetStore
}

func NewFishAudioClient(apiKey, baseURL string, assets *AssetStore) *FishAudioClient {
	if baseURL == "" {
		baseURL = defaultFishAudioBase
	}
	return &FishAudioClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		assets:     assets,
	}
}

func (c *FishAudioClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *FishAudioClient) Generate(ctx context.Context, text, voiceID, objectName string) (*VoiceResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	reqBody := map[string]interface{}{
		"text":    text,
		"format":  "mp3",
		"latency": "normal",
	}
	if voiceID != "" {
		reqBody["reference_id"] = voiceID
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fish audio status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取音频响应失败: %w", err)
	}

	if c.assets != nil {
		url, err := c.assets.Upload(ctx, bytes.NewReader(audio), objectName, int64(len(audio)))
		if err != nil {
			return nil, err
		}
		return &VoiceResult{URL: url}, nil
	}

	// 对象存储未配置时退回内联 data URL
	return &VoiceResult{
		URL: "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(audio),
	}, nil
}
