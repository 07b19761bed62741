package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appcfg "github.com/quicknotes/core/internal/config"
	"github.com/quicknotes/core/internal/pkg/cron"
)

var (
	selectNotesSQL = regexp.QuoteMeta("SELECT * FROM `notes` ORDER BY id")
	selectUsersSQL = regexp.QuoteMeta("SELECT * FROM `users` ORDER BY id")
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = input
	if input.Body != nil {
		f.body, _ = io.ReadAll(input.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func newBackupService(t *testing.T, fake *fakePutter) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	svc := &Service{
		db: db,
		cfg: appcfg.BackupConfig{
			Bucket:          "notes-backups",
			Prefix:          "backups",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		},
		client: fake,
		logger: zap.NewNop(),
		now: func() time.Time {
			return time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)
		},
	}
	return svc, mock
}

func noteRows(t0 time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "content", "tags", "event_date", "event_time", "created_at", "updated_at"}).
		AddRow(int64(1), "Standup", "Weekly sync", []byte(`["work"]`), nil, nil, t0, t0).
		AddRow(int64(2), "Groceries", "Milk and eggs", nil, "2025-03-10", nil, t0, t0)
}

func userRows(t0 time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "created_at", "updated_at"}).
		AddRow(int64(1), "ada", "ada@example.com", t0, t0)
}

func TestRunUploadsArchive(t *testing.T) {
	fake := &fakePutter{}
	svc, mock := newBackupService(t, fake)

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(selectNotesSQL).WillReturnRows(noteRows(t0))
	mock.ExpectQuery(selectUsersSQL).WillReturnRows(userRows(t0))

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "backups/notes-backup-2025-03-09T10-30-00.json", res.Key)
	require.Equal(t, 2, res.Notes)
	require.Equal(t, 1, res.Users)
	require.Equal(t, len(fake.body), res.Bytes)

	require.NotNil(t, fake.input)
	assert.Equal(t, "notes-backups", awssdk.ToString(fake.input.Bucket))
	assert.Equal(t, res.Key, awssdk.ToString(fake.input.Key))
	assert.Equal(t, "application/json", awssdk.ToString(fake.input.ContentType))

	var doc struct {
		GeneratedAt time.Time `json:"generated_at"`
		Notes       []struct {
			Title string   `json:"title"`
			Tags  []string `json:"tags"`
		} `json:"notes"`
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(fake.body, &doc))
	require.Len(t, doc.Notes, 2)
	assert.Equal(t, "Standup", doc.Notes[0].Title)
	assert.Equal(t, []string{"work"}, doc.Notes[0].Tags)
	require.Len(t, doc.Users, 1)
	assert.Equal(t, "ada", doc.Users[0].Username)
	assert.Equal(t, svc.now().UTC(), doc.GeneratedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunWithoutStorage(t *testing.T) {
	svc := &Service{logger: zap.NewNop(), now: time.Now}

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, errNotConfigured)
}

func TestRunUploadFailure(t *testing.T) {
	fake := &fakePutter{err: errors.New("access denied")}
	svc, mock := newBackupService(t, fake)

	t0 := time.Now().UTC()
	mock.ExpectQuery(selectNotesSQL).WillReturnRows(noteRows(t0))
	mock.ExpectQuery(selectUsersSQL).WillReturnRows(userRows(t0))

	_, err := svc.Run(context.Background())
	require.ErrorContains(t, err, "upload archive")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 30, 0, 0, time.UTC)
	cases := []struct {
		prefix string
		want   string
	}{
		{"", "notes-backup-2025-03-09T10-30-00.json"},
		{"backups", "backups/notes-backup-2025-03-09T10-30-00.json"},
		{"/deep/path/", "deep/path/notes-backup-2025-03-09T10-30-00.json"},
	}
	for _, tc := range cases {
		svc := &Service{cfg: appcfg.BackupConfig{Prefix: tc.prefix}}
		assert.Equal(t, tc.want, svc.objectKey(now), "prefix %q", tc.prefix)
	}
}

func TestRegisterJobWithoutStorage(t *testing.T) {
	sched := cron.New(zap.NewNop())
	svc := &Service{logger: zap.NewNop(), now: time.Now}

	svc.RegisterJob(sched)

	err := sched.Run(context.Background(), JobName)
	require.Error(t, err)
}

func TestScheduledJobRunsBackup(t *testing.T) {
	fake := &fakePutter{}
	svc, mock := newBackupService(t, fake)

	t0 := time.Now().UTC()
	mock.ExpectQuery(selectNotesSQL).WillReturnRows(noteRows(t0))
	mock.ExpectQuery(selectUsersSQL).WillReturnRows(userRows(t0))

	sched := cron.New(zap.NewNop())
	svc.RegisterJob(sched)

	require.NoError(t, sched.Run(context.Background(), JobName))
	require.NotNil(t, fake.input)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newBackupRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api"))
	return r
}

func TestBackupEndpoint(t *testing.T) {
	fake := &fakePutter{}
	svc, mock := newBackupService(t, fake)
	r := newBackupRouter(t, svc)

	t0 := time.Now().UTC()
	mock.ExpectQuery(selectNotesSQL).WillReturnRows(noteRows(t0))
	mock.ExpectQuery(selectUsersSQL).WillReturnRows(userRows(t0))

	req := httptest.NewRequest(http.MethodPost, "/api/backup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var res Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "backups/notes-backup-2025-03-09T10-30-00.json", res.Key)
	assert.Equal(t, 2, res.Notes)
	assert.Equal(t, 1, res.Users)
	assert.Positive(t, res.Bytes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackupEndpointWithoutStorage(t *testing.T) {
	svc := &Service{logger: zap.NewNop(), now: time.Now}
	r := newBackupRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/backup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.JSONEq(t, `{"error":"Backup storage not configured"}`, w.Body.String())
}
