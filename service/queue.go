package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePipelineRun = "pipeline:run"
	TypeItemRetry   = "pipeline:retry"
)

const (
	RetryTargetSceneVoice = "scene_voice"
	RetryTargetSceneVideo = "scene_video"
	RetryTargetSegment    = "segment_broll"
)

type PipelineRunPayload struct {
	ProjectID string `json:"project_id"`
}

type ItemRetryPayload struct {
	Target string `json:"target"`
	ID     string `json:"id"`
}

// Queue 是写路径用的入队客户端。项目记录落库之后才调用 DispatchPipeline，
// 保证流水线启动时一定能读到该记录。
type Queue struct {
	client *asynq.Client
}

func NewQueue(addr, password string) *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
		}),
	}
}

func (q *Queue) DispatchPipeline(projectID string) error {
	payload, err := json.Marshal(PipelineRunPayload{ProjectID: projectID})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypePipelineRun, payload,
		asynq.MaxRetry(0),             // 失败状态由流水线自己落库，不做队列级重试
		asynq.Timeout(60*time.Minute), // 多阶段外部生成较慢，留足超时
		asynq.Retention(24*time.Hour),
	)
	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[Queue] Pipeline Enqueued: Project=%s, TaskID=%s", projectID, info.ID)
	return nil
}

func (q *Queue) DispatchRetry(target, id string) error {
	payload, err := json.Marshal(ItemRetryPayload{Target: target, ID: id})
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypeItemRetry, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(20*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[Queue] Retry Enqueued: Target=%s, ID=%s, TaskID=%s", target, id, info.ID)
	return nil
}

// Processor 消费流水线任务
type Processor struct {
	pipeline *Pipeline
	redisOpt asynq.RedisClientOpt
}

func NewProcessor(addr, password string, pipeline *Pipeline) *Processor {
	return &Processor{
		pipeline: pipeline,
		redisOpt: asynq.RedisClientOpt{Addr: addr, Password: password},
	}
}

// Start 启动任务消费者
func (p *Processor) Start(concurrency int) {
	srv := asynq.NewServer(p.redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePipelineRun, p.handlePipelineRun)
	mux.HandleFunc(TypeItemRetry, p.handleItemRetry)

	log.Printf("Starting pipeline processor with concurrency %d...", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run server: %v", err)
		}
	}()
}

func (p *Processor) handlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload PipelineRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing pipeline run: %s", payload.ProjectID)
	// 业务失败已由 Run 落库为项目 error 状态，这里返回 nil 避免队列重试
	if err := p.pipeline.Run(ctx, payload.ProjectID); err != nil {
		log.Printf("[%s] pipeline run failed: %v", payload.ProjectID, err)
	}
	return nil
}

func (p *Processor) handleItemRetry(ctx context.Context, t *asynq.Task) error {
	var payload ItemRetryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing item retry: target=%s id=%s", payload.Target, payload.ID)
	var err error
	switch payload.Target {
	case RetryTargetSceneVoice:
		err = p.pipeline.RetrySceneVoice(ctx, payload.ID)
	case RetryTargetSceneVideo:
		err = p.pipeline.RetrySceneVideo(ctx, payload.ID)
	case RetryTargetSegment:
		err = p.pipeline.RetrySegment(ctx, payload.ID)
	default:
		return fmt.Errorf("unknown retry target %s: %w", payload.Target, asynq.SkipRetry)
	}
	if err != nil {
		// 单项重试失败只体现在该项的状态字段上
		log.Printf("item retry failed: target=%s id=%s: %v", payload.Target, payload.ID, err)
	}
	return nil
}
