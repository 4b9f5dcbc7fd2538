package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenRouterBase  = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "google/gemini-2.0-flash-001"
)

// GeneratedScript 是脚本生成阶段的完整输出：
// 主脚本的场景列表，每个场景再附带 B-roll 提示词配对
type GeneratedScript struct {
	TotalMinutes float64          `json:"total_minutes"`
	SpeechPrompt string           `json:"speech_prompt"`
	Scenes       []GeneratedScene `json:"scenes"`
}

type GeneratedScene struct {
	SceneName    string        `json:"scene_name"`
	Script       string        `json:"script"`
	SpeechPrompt string        `json:"speech_prompt"`
	EstimateMins float64       `json:"estimate_mins"`
	WordCount    int           `json:"word_count"`
	BrollPrompts []BrollPrompt `json:"broll_prompts"`
}

type BrollPrompt struct {
	StartImagePrompt string `json:"start_image_prompt"`
	VideoPrompt      string `json:"video_prompt"`
}

type ScriptOptions struct {
	ToneOfVoice   string
	SpeechPrompt  string
	TargetMinutes int
}

// ScriptClient 通过 OpenRouter 的 chat completions 接口生成脚本。
// 未配置 api key 时退回内置的离线脚本，保证流水线在本地也能跑通。
type ScriptClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewScriptClient(apiKey, baseURL, model string) *ScriptClient {
	if baseURL == "" {
		baseURL = defaultOpenRouterBase
	}
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &ScriptClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// 主脚本接口返回的 JSON 结构
type scriptOutput struct {
	TotalMinutes float64 `json:"total_minutes"`
	SpeechPrompt string  `json:"speech_prompt"`
	Segments     []struct {
		Scene           string  `json:"scene"`
		Script          string  `json:"script"`
		DurationMinutes float64 `json:"duration_minutes"`
		WordCount       int     `json:"word_count"`
	} `json:"segments"`
}

// 单场景 B-roll 接口返回的 JSON 结构
type brollOutput struct {
	TotalSegments int `json:"total_segments"`
	Segments      []struct {
		SegmentNumber    int    `json:"segment_number"`
		StartImagePrompt string `json:"start_image_prompt"`
		VideoPrompt      string `json:"video_prompt"`
	} `json:"segments"`
}

// Generate 两步生成：先出主脚本，再逐场景出 B-roll 提示词
func (c *ScriptClient) Generate(ctx context.Context, topic string, opts *ScriptOptions) (*GeneratedScript, error) {
	if c.apiKey == "" {
		return offlineScript(topic), nil
	}

	main, err := c.generateMainScript(ctx, topic, opts)
	if err != nil {
		return nil, err
	}
	if len(main.Segments) == 0 {
		return nil, fmt.Errorf("脚本生成结果没有任何场景")
	}

	result := &GeneratedScript{
		TotalMinutes: main.TotalMinutes,
		SpeechPrompt: main.SpeechPrompt,
	}
	if result.SpeechPrompt == "" {
		result.SpeechPrompt = defaultSpeechPrompt
	}

	for _, seg := range main.Segments {
		broll, err := c.generateBroll(ctx, seg.Script)
		if err != nil {
			return nil, err
		}
		scene := GeneratedScene{
			SceneName:    seg.Scene,
			Script:       seg.Script,
			SpeechPrompt: result.SpeechPrompt,
			EstimateMins: seg.DurationMinutes,
			WordCount:    seg.WordCount,
		}
		for _, b := range broll.Segments {
			scene.BrollPrompts = append(scene.BrollPrompts, BrollPrompt{
				StartImagePrompt: b.StartImagePrompt,
				VideoPrompt:      b.VideoPrompt,
			})
		}
		result.Scenes = append(result.Scenes, scene)
	}
	return result, nil
}

func (c *ScriptClient) generateMainScript(ctx context.Context, topic string, opts *ScriptOptions) (*scriptOutput, error) {
	targetMinutes := defaultVideoMinutes
	if opts != nil && opts.TargetMinutes > 0 {
		targetMinutes = opts.TargetMinutes
	}
	userPrompt := fmt.Sprintf("Create a %d minute video script about: %s", targetMinutes, topic)
	if opts != nil && opts.ToneOfVoice != "" {
		userPrompt += "\n\nTone of voice: " + opts.ToneOfVoice
	}
	if opts != nil && opts.SpeechPrompt != "" {
		userPrompt += "\n\nSpeech/delivery prompt: " + opts.SpeechPrompt
	}

	var out scriptOutput
	if err := c.chatJSON(ctx, scriptSystemPrompt, userPrompt, 8000, &out); err != nil {
		return nil, fmt.Errorf("script generation error: %w", err)
	}
	return &out, nil
}

func (c *ScriptClient) generateBroll(ctx context.Context, script string) (*brollOutput, error) {
	userPrompt := "Generate SEALCaM B-roll prompts for this script:\n\n" + script
	var out brollOutput
	if err := c.chatJSON(ctx, brollSystemPrompt, userPrompt, 4000, &out); err != nil {
		return nil, fmt.Errorf("b-roll generation error: %w", err)
	}
	return &out, nil
}

// chatJSON 发起一次 response_format=json_object 的 chat completion，
// 并把 choices[0].message.content 解析到 target
func (c *ScriptClient) chatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, target interface{}) error {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":     0.7,
		"max_tokens":      maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openrouter status %d: %s", resp.StatusCode, string(body))
	}

	var chat struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return fmt.Errorf("response missing content")
	}
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), target); err != nil {
		return fmt.Errorf("invalid JSON in model output: %w", err)
	}
	return nil
}

// offlineScript 无 api key 时的内置脚本，两个场景各带一条 B-roll 提示词
func offlineScript(topic string) *GeneratedScript {
	return &GeneratedScript{
		TotalMinutes: 1,
		SpeechPrompt: defaultSpeechPrompt,
		Scenes: []GeneratedScene{
			{
				SceneName:    "1 - Hook and Setup",
				Script:       fmt.Sprintf("You know what's fascinating about %s? It's something most people completely overlook, but once you understand it, everything clicks into place.", topic),
				SpeechPrompt: defaultSpeechPrompt,
				EstimateMins: 0.5,
				WordCount:    28,
				BrollPrompts: []BrollPrompt{
					{
						StartImagePrompt: fmt.Sprintf("Subject: Abstract visualization of %s, glowing interconnected nodes. Environment: Dark void with blue-purple gradient. Action: Static starting frame. Lighting: Soft cyan key light from above-left. Camera: 24mm prime, centered wide shot, locked-off. Metatokens: Photorealistic CGI, cinematic color grade.", topic),
						VideoPrompt:      "Subject: Nodes activating in sequence, connection lines illuminating. Environment: Same dark void, particles drifting toward camera. Action: Slow 2-second dolly push-in. Lighting: Key light intensity increases. Camera: 24mm prime, slow dolly push. Metatokens: Smooth 24fps motion, subtle lens bloom.",
					},
				},
			},
			{
				SceneName:    "2 - Takeaway",
				Script:       fmt.Sprintf("That's %s in a nutshell. Remember these key ideas and you'll be ahead of most people. If this was helpful, save it for later.", topic),
				SpeechPrompt: defaultSpeechPrompt,
				EstimateMins: 0.5,
				WordCount:    26,
				BrollPrompts: []BrollPrompt{
					{
						StartImagePrompt: "Subject: Person silhouette at mountain summit overlooking a sea of clouds. Environment: Golden hour vista, layered ridges in haze. Action: Static hero moment. Lighting: Dramatic backlight, sun just above horizon. Camera: 24mm anamorphic, wide establishing shot. Metatokens: Epic cinematic realism, rich dynamic range.",
						VideoPrompt:      "Subject: Figure slowly raises arms as the sun crests the horizon. Environment: Clouds drifting below, golden light spreading. Action: Triumphant arm raise over 3 seconds. Lighting: Backlight intensifies. Camera: Slow tilt-up following the movement. Metatokens: Smooth 24fps, anamorphic flare.",
					},
				},
			},
		},
	}
}
