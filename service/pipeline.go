package service

import (
	"context"
	"fmt"
	"log"

	"longform-server/models"

	"github.com/google/uuid"
)

// 三个生成端口。流水线只依赖接口，具体实现分别是
// ScriptClient / FishAudioClient / WaveSpeedClient。
type ScriptGenerator interface {
	Generate(ctx context.Context, topic string, opts *ScriptOptions) (*GeneratedScript, error)
}

type VoiceGenerator interface {
	Configured() bool
	Generate(ctx context.Context, text, voiceID, objectName string) (*VoiceResult, error)
}

type MediaGenerator interface {
	Configured() bool
	TalkingHead(ctx context.Context, imageURL, audioURL string) (string, error)
	Image(ctx context.Context, prompt string) (string, error)
	BrollVideo(ctx context.Context, imageURL, prompt string) (string, error)
}

// Pipeline 驱动单个项目走完固定的阶段序列：
// create -> scripting -> voice -> video -> broll -> done（error 为并行终态）。
// 阶段内逐项处理，单项失败只标记该项，绝不中断兄弟项或整个阶段；
// 只有脚本生成失败或阶段外异常才会把项目整体置为 error。
type Pipeline struct {
	store  models.Store
	script ScriptGenerator
	voice  VoiceGenerator
	media  MediaGenerator
	assets *AssetStore
}

func NewPipeline(store models.Store, script ScriptGenerator, voice VoiceGenerator, media MediaGenerator, assets *AssetStore) *Pipeline {
	return &Pipeline{
		store:  store,
		script: script,
		voice:  voice,
		media:  media,
		assets: assets,
	}
}

// Run 执行完整流水线。返回的 error 在写入项目 error 状态之后给出，
// 仅供调用方记录，不需要再做补救。
func (p *Pipeline) Run(ctx context.Context, projectID string) error {
	if err := p.run(ctx, projectID); err != nil {
		log.Printf("[%s] 流水线失败: %v", projectID, err)
		if ferr := p.store.UpdateProject(projectID, map[string]interface{}{
			"status": models.ProjectStatusError,
			"error":  err.Error(),
		}); ferr != nil {
			log.Printf("[%s] 写入失败状态失败: %v", projectID, ferr)
		}
		return err
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, projectID string) error {
	if err := p.setStatus(projectID, models.ProjectStatusScripting); err != nil {
		return err
	}
	project, err := p.store.GetProjectByID(projectID)
	if err != nil {
		return fmt.Errorf("project not found: %w", err)
	}

	log.Printf("[%s] 开始生成脚本...", projectID)
	script, err := p.script.Generate(ctx, project.InputRequest, nil)
	if err != nil {
		return fmt.Errorf("脚本生成失败: %w", err)
	}
	if err := p.createScenes(project, script); err != nil {
		return err
	}

	if p.voice != nil && p.voice.Configured() {
		if err := p.setStatus(projectID, models.ProjectStatusVoice); err != nil {
			return err
		}
		if err := p.processVoice(ctx, project); err != nil {
			return err
		}
	}

	if p.media != nil && p.media.Configured() && project.InputImageURL != "" {
		if err := p.setStatus(projectID, models.ProjectStatusVideo); err != nil {
			return err
		}
		if err := p.processVideo(ctx, project); err != nil {
			return err
		}
	}

	if p.media != nil && p.media.Configured() {
		if err := p.setStatus(projectID, models.ProjectStatusBroll); err != nil {
			return err
		}
		if err := p.processBroll(ctx, project); err != nil {
			return err
		}
	}

	// 子项里有多少 error 都不影响项目收尾为 done
	if err := p.setStatus(projectID, models.ProjectStatusDone); err != nil {
		return err
	}
	log.Printf("[%s] 流水线处理完成", projectID)
	return nil
}

// 每次阶段切换都立即落库，再开始执行该阶段
func (p *Pipeline) setStatus(projectID, status string) error {
	return p.store.UpdateProject(projectID, map[string]interface{}{"status": status})
}

// createScenes 按脚本输出顺序批量建场景和片段：
// scene_number 从 1 连续编号，segment_number 在每个场景内从 1 重新编号
func (p *Pipeline) createScenes(project *models.Project, script *GeneratedScript) error {
	for i, scene := range script.Scenes {
		speech := scene.SpeechPrompt
		if speech == "" {
			speech = script.SpeechPrompt
		}
		record := &models.Scene{
			ID:           uuid.NewString(),
			ProjectId:    project.ID,
			SceneNumber:  i + 1,
			SceneName:    scene.SceneName,
			Script:       scene.Script,
			SpeechPrompt: speech,
			EstimateMins: scene.EstimateMins,
			WordCount:    scene.WordCount,
			StatusVoice:  models.AssetStatusPending,
			StatusVideo:  models.AssetStatusPending,
			StatusBroll:  models.AssetStatusPending,
		}
		if err := p.store.CreateScene(record); err != nil {
			return fmt.Errorf("创建场景 %d 失败: %w", i+1, err)
		}

		for j, broll := range scene.BrollPrompts {
			seg := &models.Segment{
				ID:               uuid.NewString(),
				ProjectId:        project.ID,
				SceneId:          record.ID,
				SceneNumber:      i + 1,
				SegmentNumber:    j + 1,
				SegmentName:      fmt.Sprintf("Scene %d - B-Roll %d", i+1, j+1),
				StartImagePrompt: broll.StartImagePrompt,
				VideoPrompt:      broll.VideoPrompt,
				StatusImage:      models.AssetStatusPending,
				StatusVideo:      models.AssetStatusPending,
			}
			if err := p.store.CreateSegment(seg); err != nil {
				return fmt.Errorf("创建片段 %d-%d 失败: %w", i+1, j+1, err)
			}
		}
	}
	log.Printf("[%s] 已创建 %d 个场景", project.ID, len(script.Scenes))
	return nil
}

// ============================================================================
// voice 阶段：逐场景生成配音
// ============================================================================

func (p *Pipeline) processVoice(ctx context.Context, project *models.Project) error {
	scenes, err := p.store.ScenesByProject(project.ID)
	if err != nil {
		return err
	}
	for i := range scenes {
		scene := &scenes[i]
		if err := p.sceneVoice(ctx, project, scene); err != nil {
			log.Printf("[%s] 场景 %d 配音失败: %v", project.ID, scene.SceneNumber, err)
			p.markScene(scene.ID, map[string]interface{}{"status_voice": models.AssetStatusError})
			continue
		}
		log.Printf("[%s] 场景 %d 配音完成", project.ID, scene.SceneNumber)
	}
	return nil
}

func (p *Pipeline) sceneVoice(ctx context.Context, project *models.Project, scene *models.Scene) error {
	if err := p.store.UpdateScene(scene.ID, map[string]interface{}{
		"status_voice": models.AssetStatusProcessing,
	}); err != nil {
		return err
	}

	objectName := fmt.Sprintf("projects/%s/scenes/%s/voice.mp3", project.ID, scene.ID)
	result, err := p.voice.Generate(ctx, scene.Script, project.InputVoiceID, objectName)
	if err != nil {
		return err
	}
	return p.store.UpdateScene(scene.ID, map[string]interface{}{
		"scene_voice_url": result.URL,
		"status_voice":    models.AssetStatusDone,
	})
}

// ============================================================================
// video 阶段：对配音完成的场景生成口播视频
// ============================================================================

func (p *Pipeline) processVideo(ctx context.Context, project *models.Project) error {
	scenes, err := p.store.ScenesByVoiceStatus(project.ID, models.AssetStatusDone)
	if err != nil {
		return err
	}
	for i := range scenes {
		scene := &scenes[i]
		if scene.SceneVoiceURL == "" {
			continue
		}
		if err := p.sceneVideo(ctx, project, scene); err != nil {
			log.Printf("[%s] 场景 %d 口播视频失败: %v", project.ID, scene.SceneNumber, err)
			p.markScene(scene.ID, map[string]interface{}{"status_video": models.AssetStatusError})
			continue
		}
		log.Printf("[%s] 场景 %d 口播视频完成", project.ID, scene.SceneNumber)
	}
	return nil
}

func (p *Pipeline) sceneVideo(ctx context.Context, project *models.Project, scene *models.Scene) error {
	if err := p.store.UpdateScene(scene.ID, map[string]interface{}{
		"status_video": models.AssetStatusProcessing,
	}); err != nil {
		return err
	}

	videoURL, err := p.media.TalkingHead(ctx, project.InputImageURL, scene.SceneVoiceURL)
	if err != nil {
		return err
	}
	videoURL = p.mirrorAsset(ctx, videoURL, fmt.Sprintf("projects/%s/scenes/%s/video.mp4", project.ID, scene.ID))

	return p.store.UpdateScene(scene.ID, map[string]interface{}{
		"scene_video_url": videoURL,
		"status_video":    models.AssetStatusDone,
	})
}

// ============================================================================
// broll 阶段：逐片段先生成首帧图，再由图生成运动视频
// ============================================================================

func (p *Pipeline) processBroll(ctx context.Context, project *models.Project) error {
	segments, err := p.store.SegmentsByProject(project.ID)
	if err != nil {
		return err
	}
	for i := range segments {
		seg := &segments[i]
		if seg.StartImagePrompt == "" {
			continue
		}
		if err := p.segmentBroll(ctx, seg); err != nil {
			log.Printf("[%s] 片段 %d-%d B-roll 失败: %v", project.ID, seg.SceneNumber, seg.SegmentNumber, err)
			continue
		}
		log.Printf("[%s] 片段 %d-%d B-roll 完成", project.ID, seg.SceneNumber, seg.SegmentNumber)
	}
	return nil
}

// segmentBroll 自己负责片段的全部状态写入，失败时返回 error 仅用于日志。
// 状态写入本身失败也要把对应状态落成 error，不能把片段留在 pending/processing。
func (p *Pipeline) segmentBroll(ctx context.Context, seg *models.Segment) error {
	if err := p.store.UpdateSegment(seg.ID, map[string]interface{}{
		"status_image": models.AssetStatusProcessing,
	}); err != nil {
		p.markSegment(seg.ID, map[string]interface{}{
			"status_image": models.AssetStatusError,
			"status_video": models.AssetStatusError,
		})
		return err
	}

	imageURL, err := p.media.Image(ctx, seg.StartImagePrompt)
	if err != nil {
		// 图片没出来，视频也不可能开始，两个状态一起置为 error
		p.markSegment(seg.ID, map[string]interface{}{
			"status_image": models.AssetStatusError,
			"status_video": models.AssetStatusError,
		})
		return err
	}
	imageURL = p.mirrorAsset(ctx, imageURL, fmt.Sprintf("projects/%s/segments/%s/image.png", seg.ProjectId, seg.ID))

	if err := p.store.UpdateSegment(seg.ID, map[string]interface{}{
		"segment_image_url": imageURL,
		"status_image":      models.AssetStatusDone,
	}); err != nil {
		p.markSegment(seg.ID, map[string]interface{}{
			"status_image": models.AssetStatusError,
			"status_video": models.AssetStatusError,
		})
		return err
	}

	if seg.VideoPrompt == "" {
		return nil
	}

	if err := p.store.UpdateSegment(seg.ID, map[string]interface{}{
		"status_video": models.AssetStatusProcessing,
	}); err != nil {
		p.markSegment(seg.ID, map[string]interface{}{
			"status_video": models.AssetStatusError,
		})
		return err
	}
	videoURL, err := p.media.BrollVideo(ctx, imageURL, seg.VideoPrompt)
	if err != nil {
		p.markSegment(seg.ID, map[string]interface{}{
			"status_video": models.AssetStatusError,
		})
		return err
	}
	videoURL = p.mirrorAsset(ctx, videoURL, fmt.Sprintf("projects/%s/segments/%s/video.mp4", seg.ProjectId, seg.ID))

	if err := p.store.UpdateSegment(seg.ID, map[string]interface{}{
		"segment_video_url": videoURL,
		"status_video":      models.AssetStatusDone,
	}); err != nil {
		p.markSegment(seg.ID, map[string]interface{}{
			"status_video": models.AssetStatusError,
		})
		return err
	}
	return nil
}

// ============================================================================
// 单项重试：对某个场景/片段重新跑一次对应的生成步骤
// ============================================================================

func (p *Pipeline) RetrySceneVoice(ctx context.Context, sceneID string) error {
	if p.voice == nil || !p.voice.Configured() {
		return ErrNotConfigured
	}
	scene, err := p.store.GetSceneByID(sceneID)
	if err != nil {
		return err
	}
	project, err := p.store.GetProjectByID(scene.ProjectId)
	if err != nil {
		return err
	}
	if err := p.sceneVoice(ctx, project, scene); err != nil {
		p.markScene(scene.ID, map[string]interface{}{"status_voice": models.AssetStatusError})
		return err
	}
	return nil
}

func (p *Pipeline) RetrySceneVideo(ctx context.Context, sceneID string) error {
	if p.media == nil || !p.media.Configured() {
		return ErrNotConfigured
	}
	scene, err := p.store.GetSceneByID(sceneID)
	if err != nil {
		return err
	}
	project, err := p.store.GetProjectByID(scene.ProjectId)
	if err != nil {
		return err
	}
	if project.InputImageURL == "" {
		return fmt.Errorf("项目没有口播形象图，无法生成视频")
	}
	if scene.StatusVoice != models.AssetStatusDone || scene.SceneVoiceURL == "" {
		return fmt.Errorf("场景配音未完成，无法生成视频")
	}
	if err := p.sceneVideo(ctx, project, scene); err != nil {
		p.markScene(scene.ID, map[string]interface{}{"status_video": models.AssetStatusError})
		return err
	}
	return nil
}

func (p *Pipeline) RetrySegment(ctx context.Context, segmentID string) error {
	if p.media == nil || !p.media.Configured() {
		return ErrNotConfigured
	}
	seg, err := p.store.GetSegmentByID(segmentID)
	if err != nil {
		return err
	}
	if seg.StartImagePrompt == "" {
		return fmt.Errorf("片段没有首帧图提示词")
	}
	return p.segmentBroll(ctx, seg)
}

// ============================================================================
// 辅助
// ============================================================================

// markScene / markSegment 用在失败路径上，写状态失败只能记日志
func (p *Pipeline) markScene(sceneID string, updates map[string]interface{}) {
	if err := p.store.UpdateScene(sceneID, updates); err != nil {
		log.Printf("更新场景 %s 状态失败: %v", sceneID, err)
	}
}

func (p *Pipeline) markSegment(segmentID string, updates map[string]interface{}) {
	if err := p.store.UpdateSegment(segmentID, updates); err != nil {
		log.Printf("更新片段 %s 状态失败: %v", segmentID, err)
	}
}

// mirrorAsset 尽力把生成服务的临时地址转存到自己的对象存储；
// 转存失败时保留源地址，不影响该项的成功状态
func (p *Pipeline) mirrorAsset(ctx context.Context, sourceURL, objectName string) string {
	if p.assets == nil {
		return sourceURL
	}
	mirrored, err := p.assets.Mirror(ctx, sourceURL, objectName)
	if err != nil {
		log.Printf("镜像素材到对象存储失败(保留源地址): %v", err)
		return sourceURL
	}
	return mirrored
}
