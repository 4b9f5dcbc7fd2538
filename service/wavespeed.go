package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultWaveSpeedBase = "https://api.wavespeed.ai/api/v3"

// 轮询节奏：5 秒一次，最多 60 次，即 5 分钟超时预算
const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxPollAttempts = 60
)

// ErrNotConfigured 表示该生成能力的凭证缺失，调用方据此跳过对应阶段
var ErrNotConfigured = errors.New("provider not configured")

// WaveSpeedClient 封装 WaveSpeed 的三类生成接口：
// 口播视频（infinitetalk）、首帧图（nano-banana-pro）、B-roll 视频（kling image-to-video）
type WaveSpeedClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	pollInterval    time.Duration
	maxPollAttempts int
}

func NewWaveSpeedClient(apiKey, baseURL string) *WaveSpeedClient {
	if baseURL == "" {
		baseURL = defaultWaveSpeedBase
	}
	return &WaveSpeedClient{
		apiKey:          apiKey,
		baseURL:         baseURL,
		httpClient:      &http.Client{Timeout: 2 * time.Minute},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

func (c *WaveSpeedClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// output 字段可能是单个字符串也可能是字符串数组
type outputList []string

func (o *outputList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*o = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*o = outputList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*o = many
	return nil
}

type waveSpeedResponse struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Output outputList `json:"output"`
	Error  string     `json:"error"`
}

// jobOutcome 区分两种返回形态：同步拿到结果（output），或拿到需轮询的 job（jobID）
type jobOutcome struct {
	output string
	jobID  string
}

func (o jobOutcome) pending() bool {
	return o.jobID != ""
}

func (c *WaveSpeedClient) TalkingHead(ctx context.Context, imageURL, audioURL string) (string, error) {
	return c.generate(ctx, "/wavespeed-ai/infinitetalk", map[string]interface{}{
		"image_url": imageURL,
		"audio_url": audioURL,
	})
}

func (c *WaveSpeedClient) Image(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "/google/nano-banana-pro", map[string]interface{}{
		"prompt":     prompt,
		"num_images": 1,
		"width":      1280,
		"height":     720,
	})
}

func (c *WaveSpeedClient) BrollVideo(ctx context.Context, imageURL, prompt string) (string, error) {
	return c.generate(ctx, "/kwaivgi/kling-v2.6-pro/image-to-video", map[string]interface{}{
		"image_url": imageURL,
		"prompt":    prompt,
		"duration":  5,
	})
}

func (c *WaveSpeedClient) generate(ctx context.Context, path string, body map[string]interface{}) (string, error) {
	outcome, err := c.submit(ctx, path, body)
	if err != nil {
		return "", err
	}
	if outcome.pending() {
		return c.pollResult(ctx, outcome.jobID)
	}
	return outcome.output, nil
}

func (c *WaveSpeedClient) submit(ctx context.Context, path string, body map[string]interface{}) (jobOutcome, error) {
	if !c.Configured() {
		return jobOutcome{}, ErrNotConfigured
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return jobOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return jobOutcome{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jobOutcome{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		b, _ := io.ReadAll(resp.Body)
		return jobOutcome{}, fmt.Errorf("wavespeed status %d: %s", resp.StatusCode, string(b))
	}

	var data waveSpeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return jobOutcome{}, fmt.Errorf("decode response failed: %w", err)
	}
	if data.Error != "" {
		return jobOutcome{}, fmt.Errorf("wavespeed error: %s", data.Error)
	}
	if data.ID != "" && data.Status == "processing" {
		return jobOutcome{jobID: data.ID}, nil
	}
	if len(data.Output) > 0 {
		return jobOutcome{output: data.Output[0]}, nil
	}
	return jobOutcome{}, fmt.Errorf("wavespeed response missing output")
}

// pollResult 轮询 GET /status/{job_id} 直到终态。
// 单次查询失败（网络错误 / 非 200 / 解析失败）只跳过本次，不中断轮询。
func (c *WaveSpeedClient) pollResult(ctx context.Context, jobID string) (string, error) {
	statusURL := fmt.Sprintf("%s/status/%s", c.baseURL, jobID)

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("polling canceled: %w", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Printf("轮询网络错误(重试中): %v", err)
			continue
		}

		var data waveSpeedResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&data)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decodeErr != nil {
			log.Printf("轮询响应异常 status=%d err=%v，跳过本次", resp.StatusCode, decodeErr)
			continue
		}

		if data.Status == "completed" && len(data.Output) > 0 {
			return data.Output[0], nil
		}
		if data.Status == "failed" || data.Error != "" {
			return "", fmt.Errorf("job failed: %s", data.Error)
		}
		// 其他状态继续轮询
	}
	return "", fmt.Errorf("job %s timed out after %d attempts", jobID, c.maxPollAttempts)
}
