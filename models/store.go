package models

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Store 是流水线与 API 层共用的持久化接口。
// 之前的实现用的是包级全局 DB 单例，这里改为显式构造、按引用传入，
// 方便在测试里替换为内存实现。
type Store interface {
	CreateProject(p *Project) error
	GetProjectByID(id string) (*Project, error)
	ListProjects() ([]Project, error)
	UpdateProject(id string, updates map[string]interface{}) error
	DeleteProject(id string) error

	CreateScene(s *Scene) error
	GetSceneByID(id string) (*Scene, error)
	ScenesByProject(projectID string) ([]Scene, error)
	ScenesByVoiceStatus(projectID, status string) ([]Scene, error)
	UpdateScene(id string, updates map[string]interface{}) error

	CreateSegment(s *Segment) error
	GetSegmentByID(id string) (*Segment, error)
	SegmentsByProject(projectID string) ([]Segment, error)
	UpdateSegment(id string, updates map[string]interface{}) error
}

// GormStore 基于 MySQL + GORM 的 Store 实现
type GormStore struct {
	db *gorm.DB
}

func NewStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("GORM 初始化失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.AutoMigrate(&Project{}, &Scene{}, &Segment{}); err != nil {
		return nil, fmt.Errorf("自动建表失败: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Project

func (s *GormStore) CreateProject(p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.db.Create(p).Error
}

func (s *GormStore) GetProjectByID(id string) (*Project, error) {
	var p Project
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) ListProjects() ([]Project, error) {
	var res []Project
	if err := s.db.Order("created_at DESC").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (s *GormStore) UpdateProject(id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return s.db.Model(&Project{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteProject 级联删除项目下的全部场景与片段
func (s *GormStore) DeleteProject(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&Segment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&Scene{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Project{}).Error
	})
}

// Scene

func (s *GormStore) CreateScene(sc *Scene) error {
	now := time.Now()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	return s.db.Create(sc).Error
}

func (s *GormStore) GetSceneByID(id string) (*Scene, error) {
	var sc Scene
	if err := s.db.First(&sc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *GormStore) ScenesByProject(projectID string) ([]Scene, error) {
	var res []Scene
	err := s.db.Where("project_id = ?", projectID).
		Order("scene_number ASC").Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *GormStore) ScenesByVoiceStatus(projectID, status string) ([]Scene, error) {
	var res []Scene
	err := s.db.Where("project_id = ? AND status_voice = ?", projectID, status).
		Order("scene_number ASC").Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *GormStore) UpdateScene(id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return s.db.Model(&Scene{}).Where("id = ?", id).Updates(updates).Error
}

// Segment

func (s *GormStore) CreateSegment(seg *Segment) error {
	now := time.Now()
	seg.CreatedAt = now
	seg.UpdatedAt = now
	return s.db.Create(seg).Error
}

func (s *GormStore) GetSegmentByID(id string) (*Segment, error) {
	var seg Segment
	if err := s.db.First(&seg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &seg, nil
}

// SegmentsByProject 按场景序、场景内片段序返回，保证 B-roll 阶段的确定性处理顺序
func (s *GormStore) SegmentsByProject(projectID string) ([]Segment, error) {
	var res []Segment
	err := s.db.Where("project_id = ?", projectID).
		Order("scene_number ASC, segment_number ASC").Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *GormStore) UpdateSegment(id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return s.db.Model(&Segment{}).Where("id = ?", id).Updates(updates).Error
}
