package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"longform-server/models"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// fakeStore 是内存版 Store，记录项目状态变更轨迹供断言
type fakeStore struct {
	mu            sync.Mutex
	projects      map[string]*models.Project
	scenes        map[string]*models.Scene
	segments      map[string]*models.Segment
	statusHistory map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:      make(map[string]*models.Project),
		scenes:        make(map[string]*models.Scene),
		segments:      make(map[string]*models.Segment),
		statusHistory: make(map[string][]string),
	}
}

func (f *fakeStore) CreateProject(p *models.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.projects[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetProjectByID(id string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProjects() ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []models.Project
	for _, p := range f.projects {
		res = append(res, *p)
	}
	return res, nil
}

func (f *fakeStore) UpdateProject(id string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "status":
			p.Status = v.(string)
			f.statusHistory[id] = append(f.statusHistory[id], p.Status)
		case "error":
			p.Error = v.(string)
		}
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteProject(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.projects, id)
	for sid, sc := range f.scenes {
		if sc.ProjectId == id {
			delete(f.scenes, sid)
		}
	}
	for sid, seg := range f.segments {
		if seg.ProjectId == id {
			delete(f.segments, sid)
		}
	}
	return nil
}

func (f *fakeStore) CreateScene(s *models.Scene) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.scenes[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetSceneByID(id string) (*models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scenes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ScenesByProject(projectID string) ([]models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []models.Scene
	for _, s := range f.scenes {
		if s.ProjectId == projectID {
			res = append(res, *s)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SceneNumber < res[j].SceneNumber })
	return res, nil
}

func (f *fakeStore) ScenesByVoiceStatus(projectID, status string) ([]models.Scene, error) {
	all, _ := f.ScenesByProject(projectID)
	var res []models.Scene
	for _, s := range all {
		if s.StatusVoice == status {
			res = append(res, s)
		}
	}
	return res, nil
}

func (f *fakeStore) UpdateScene(id string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scenes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "status_voice":
			s.StatusVoice = v.(string)
		case "status_video":
			s.StatusVideo = v.(string)
		case "status_broll":
			s.StatusBroll = v.(string)
		case "scene_voice_url":
			s.SceneVoiceURL = v.(string)
		case "scene_video_url":
			s.SceneVideoURL = v.(string)
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) CreateSegment(s *models.Segment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.segments[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetSegmentByID(id string) (*models.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.segments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SegmentsByProject(projectID string) ([]models.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []models.Segment
	for _, s := range f.segments {
		if s.ProjectId == projectID {
			res = append(res, *s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].SceneNumber != res[j].SceneNumber {
			return res[i].SceneNumber < res[j].SceneNumber
		}
		return res[i].SegmentNumber < res[j].SegmentNumber
	})
	return res, nil
}

func (f *fakeStore) UpdateSegment(id string, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.segments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range updates {
		switch k {
		case "status_image":
			s.StatusImage = v.(string)
		case "status_video":
			s.StatusVideo = v.(string)
		case "segment_image_url":
			s.SegmentImageURL = v.(string)
		case "segment_video_url":
			s.SegmentVideoURL = v.(string)
		}
	}
	s.UpdatedAt = time.Now()
	return nil
}

type MockScriptGenerator struct {
	mock.Mock
}

func (m *MockScriptGenerator) Generate(ctx context.Context, topic string, opts *ScriptOptions) (*GeneratedScript, error) {
	args := m.Called(ctx, topic, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeneratedScript), args.Error(1)
}

type MockVoiceGenerator struct {
	mock.Mock
}

func (m *MockVoiceGenerator) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockVoiceGenerator) Generate(ctx context.Context, text, voiceID, objectName string) (*VoiceResult, error) {
	args := m.Called(ctx, text, voiceID, objectName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VoiceResult), args.Error(1)
}

type MockMediaGenerator struct {
	mock.Mock
}

func (m *MockMediaGenerator) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockMediaGenerator) TalkingHead(ctx context.Context, imageURL, audioURL string) (string, error) {
	args := m.Called(ctx, imageURL, audioURL)
	return args.String(0), args.Error(1)
}

func (m *MockMediaGenerator) Image(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockMediaGenerator) BrollVideo(ctx context.Context, imageURL, prompt string) (string, error) {
	args := m.Called(ctx, imageURL, prompt)
	return args.String(0), args.Error(1)
}
