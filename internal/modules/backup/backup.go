package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appcfg "github.com/quicknotes/core/internal/config"
	"github.com/quicknotes/core/internal/models"
	"github.com/quicknotes/core/internal/pkg/cron"
	"github.com/quicknotes/core/internal/pkg/response"
)

const notConfiguredMessage = "Backup storage not configured"

// JobName identifies the scheduled backup job.
const JobName = "backup"

var errNotConfigured = errors.New("backup storage not configured")

type objectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// archive is the uploaded document: every note and user, plus the moment the
// snapshot was taken.
type archive struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Notes       []models.Note `json:"notes"`
	Users       []models.User `json:"users"`
}

// Result reports one finished backup upload.
type Result struct {
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
	Notes int    `json:"notes"`
	Users int    `json:"users"`
}

// Service snapshots the notes and users tables into a single JSON document
// and uploads it to S3-compatible storage. With no storage configured the
// client stays nil and Run refuses.
type Service struct {
	db     *gorm.DB
	cfg    appcfg.BackupConfig
	client objectPutter
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, cfg appcfg.BackupConfig, logger *zap.Logger) *Service {
	s := &Service{db: db, cfg: cfg, logger: logger, now: time.Now}
	if cfg.Configured() {
		s.client = newS3Client(cfg)
	}
	return s
}

func (s *Service) Enabled() bool {
	return s.client != nil
}

// Run takes a snapshot and uploads it.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if s.client == nil {
		return nil, errNotConfigured
	}

	now := s.now().UTC()
	doc := archive{GeneratedAt: now, Notes: []models.Note{}, Users: []models.User{}}
	if err := s.db.WithContext(ctx).Order("id").Find(&doc.Notes).Error; err != nil {
		return nil, fmt.Errorf("collect notes: %w", err)
	}
	if err := s.db.WithContext(ctx).Order("id").Find(&doc.Users).Error; err != nil {
		return nil, fmt.Errorf("collect users: %w", err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}

	key := s.objectKey(now)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      awssdk.String(s.cfg.Bucket),
		Key:         awssdk.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: awssdk.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	return &Result{
		Key:   key,
		Bytes: len(payload),
		Notes: len(doc.Notes),
		Users: len(doc.Users),
	}, nil
}

func (s *Service) objectKey(now time.Time) string {
	name := fmt.Sprintf("notes-backup-%s.json", now.Format("2006-01-02T15-04-05"))
	prefix := strings.Trim(strings.TrimSpace(s.cfg.Prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// RegisterJob schedules periodic uploads when an interval is configured.
// Without one the job stays manual-only; without storage nothing registers.
func (s *Service) RegisterJob(sched *cron.Scheduler) {
	if !s.Enabled() {
		return
	}
	sched.Register(cron.Job{
		Name:     JobName,
		Interval: time.Duration(s.cfg.IntervalMinutes) * time.Minute,
		Fn: func(ctx context.Context) error {
			_, err := s.Run(ctx)
			return err
		},
	})
}

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/backup", h.run)
}

func (h *Handler) run(c *gin.Context) {
	if !h.svc.Enabled() {
		response.ServiceUnavailable(c, notConfiguredMessage)
		return
	}

	result, err := h.svc.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("backup", zap.Error(err))
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
