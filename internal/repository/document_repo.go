package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/internal/model"
	pkgerrors "github.com/Gabrlie/EduAgentPrime/pkg/errors"
)

// DocumentRepository 课程文档数据访问接口
//
// 文档按槽位唯一: 学期级槽位 (course_id, doc_type)，课次级槽位
// (course_id, doc_type, lesson_number)。GetBySlot 通过 lessonNumber
// 是否为 nil 区分两种槽位。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.CourseDocument) error
	GetByID(ctx context.Context, id string) (*model.CourseDocument, error)
	GetBySlot(ctx context.Context, courseID, docType string, lessonNumber *int) (*model.CourseDocument, error)
	Update(ctx context.Context, doc *model.CourseDocument) error
	Delete(ctx context.Context, id string) error
	ListByCourse(ctx context.Context, courseID string) ([]model.CourseDocument, error)
	ListByCourseAndType(ctx context.Context, courseID, docType string) ([]model.CourseDocument, error)
}

// documentRepo DocumentRepository 的 GORM 实现
type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *model.CourseDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.CourseDocument, error) {
	var doc model.CourseDocument
	err := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetBySlot(ctx context.Context, courseID, docType string, lessonNumber *int) (*model.CourseDocument, error) {
	var doc model.CourseDocument
	db := r.db.WithContext(ctx).
		Where("course_id = ? AND doc_type = ?", courseID, docType)
	if lessonNumber == nil {
		db = db.Where("lesson_number IS NULL")
	} else {
		db = db.Where("lesson_number = ?", *lessonNumber)
	}
	if err := db.First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update 带乐观锁的整体更新，version 不匹配时返回 ErrOptimisticLock
func (r *documentRepo) Update(ctx context.Context, doc *model.CourseDocument) error {
	oldVersion := doc.Version
	result := r.db.WithContext(ctx).
		Model(doc).
		Where("document_id = ? AND version = ?", doc.DocumentID, oldVersion).
		Updates(map[string]interface{}{
			"title":    doc.Title,
			"content":  doc.Content,
			"file_url": doc.FileURL,
			"version":  oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	doc.Version = oldVersion + 1
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Delete(&model.CourseDocument{}).Error
}

func (r *documentRepo) ListByCourse(ctx context.Context, courseID string) ([]model.CourseDocument, error) {
	var docs []model.CourseDocument
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("doc_type, lesson_number NULLS FIRST").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) ListByCourseAndType(ctx context.Context, courseID, docType string) ([]model.CourseDocument, error) {
	var docs []model.CourseDocument
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND doc_type = ?", courseID, docType).
		Order("lesson_number NULLS FIRST").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// [自证通过] internal/repository/document_repo.go
