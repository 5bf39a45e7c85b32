package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/autoblog/internal/model"
)

var postRowColumns = []string{
	"id", "tenant_id", "title", "body", "topics", "media", "language",
	"generated_by", "status", "created_at", "published_at",
}

func TestPostgresPostRepo_ImplementsInterface(t *testing.T) {
	var _ PostRepository = (*PostgresPostRepo)(nil)
}

// IDとcreated_atが未設定の場合に採番され、DBが返したcreated_atが反映されることを検証する。
func TestPostgresPostRepo_Append_AssignsIDAndCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	clamped := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs(sqlmock.AnyArg(), "default", "AI breakthroughs: What You Need to Know Right Now",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "en", "cadence", "draft", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(clamped))

	repo := NewPostgresPostRepo(db)
	stored, err := repo.Append(context.Background(), &model.Post{
		TenantID: "default",
		Title:    "AI breakthroughs: What You Need to Know Right Now",
		Topics:   []string{"AI breakthroughs"},
		Language: "en",
		Trigger:  model.TriggerCadence,
	})
	if err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}
	if stored.ID == "" {
		t.Error("ID should be assigned")
	}
	if stored.Status != model.PostStatusDraft {
		t.Errorf("Status = %q, want %q", stored.Status, model.PostStatusDraft)
	}
	if !stored.CreatedAt.Equal(clamped) {
		t.Errorf("CreatedAt = %v, want %v", stored.CreatedAt, clamped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresPostRepo_Append_KeepsGivenID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	createdAt := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs("post-1", "default", "title", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"en", "manual", "draft", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	repo := NewPostgresPostRepo(db)
	stored, err := repo.Append(context.Background(), &model.Post{
		ID:        "post-1",
		TenantID:  "default",
		Title:     "title",
		Language:  "en",
		Trigger:   model.TriggerManual,
		CreatedAt: createdAt,
	})
	if err != nil {
		t.Fatalf("Append() returned error: %v", err)
	}
	if stored.ID != "post-1" {
		t.Errorf("ID = %q, want %q", stored.ID, "post-1")
	}
}

func TestPostgresPostRepo_Append_DBError_ReturnsStoreError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO posts").WillReturnError(errors.New("connection reset"))

	repo := NewPostgresPostRepo(db)
	_, err = repo.Append(context.Background(), &model.Post{TenantID: "default", Title: "t"})

	var storeErr *model.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %v, want *model.StoreError", err)
	}
}

func TestPostgresPostRepo_List_DecodesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	newer := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	older := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(postRowColumns).
		AddRow("post-2", "default", "Second", []byte(`{"html":"<h1>Second</h1>","headings":["Second"]}`),
			[]byte("{\"Tech layoffs\"}"), []byte(`[]`), "en", "cadence", "draft", newer, nil).
		AddRow("post-1", "default", "First", []byte(`{"html":"<h1>First</h1>"}`),
			[]byte("{\"AI breakthroughs\"}"), []byte(`[{"type":"image","url":"https://example.com/a.png"}]`),
			"en", "manual", "published", older, older)
	mock.ExpectQuery("SELECT id, tenant_id, title").
		WithArgs("default", 10, 0).
		WillReturnRows(rows)

	repo := NewPostgresPostRepo(db)
	posts, err := repo.List(context.Background(), "default", 10, 0)
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	if posts[0].ID != "post-2" || posts[1].ID != "post-1" {
		t.Errorf("order = [%s %s], want [post-2 post-1]", posts[0].ID, posts[1].ID)
	}
	if len(posts[0].Body.Headings) != 1 || posts[0].Body.Headings[0] != "Second" {
		t.Errorf("Headings = %v, want [Second]", posts[0].Body.Headings)
	}
	if posts[0].Topics[0] != "Tech layoffs" {
		t.Errorf("Topics = %v, want [Tech layoffs]", posts[0].Topics)
	}
	if len(posts[1].Media) != 1 || posts[1].Media[0].Type != model.MediaTypeImage {
		t.Errorf("Media = %+v, want one image", posts[1].Media)
	}
	if posts[1].Trigger != model.TriggerManual {
		t.Errorf("Trigger = %q, want %q", posts[1].Trigger, model.TriggerManual)
	}
	if posts[1].PublishedAt == nil {
		t.Error("PublishedAt should be set for published post")
	}
}

// 投稿が存在しない場合は空スライス（nilではない）を返すことを検証する。
func TestPostgresPostRepo_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, tenant_id, title").
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	repo := NewPostgresPostRepo(db)
	posts, err := repo.List(context.Background(), "default", 50, 0)
	if err != nil {
		t.Fatalf("List() returned error: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("posts = %v, want empty non-nil slice", posts)
	}
}

func TestPostgresPostRepo_CountCreatedSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	since := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT count").
		WithArgs("default", "cadence", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewPostgresPostRepo(db)
	count, err := repo.CountCreatedSince(context.Background(), "default", model.TriggerCadence, since)
	if err != nil {
		t.Fatalf("CountCreatedSince() returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestPostgresPostRepo_LatestCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	latest := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT max").
		WithArgs("default", "cadence").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	repo := NewPostgresPostRepo(db)
	got, err := repo.LatestCreatedAt(context.Background(), "default", model.TriggerCadence)
	if err != nil {
		t.Fatalf("LatestCreatedAt() returned error: %v", err)
	}
	if got == nil || !got.Equal(latest) {
		t.Errorf("LatestCreatedAt = %v, want %v", got, latest)
	}
}

func TestPostgresPostRepo_LatestCreatedAt_NoPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT max").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	repo := NewPostgresPostRepo(db)
	got, err := repo.LatestCreatedAt(context.Background(), "default", model.TriggerCadence)
	if err != nil {
		t.Fatalf("LatestCreatedAt() returned error: %v", err)
	}
	if got != nil {
		t.Errorf("LatestCreatedAt = %v, want nil", got)
	}
}

func TestPostgresPostRepo_RecentTopics(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT topics").
		WithArgs("default", 5).
		WillReturnRows(sqlmock.NewRows([]string{"topics"}).AddRow("Tech layoffs").AddRow("AI breakthroughs"))

	repo := NewPostgresPostRepo(db)
	topics, err := repo.RecentTopics(context.Background(), "default", 5)
	if err != nil {
		t.Fatalf("RecentTopics() returned error: %v", err)
	}
	if len(topics) != 2 || topics[0] != "Tech layoffs" {
		t.Errorf("topics = %v, want [Tech layoffs AI breakthroughs]", topics)
	}
}

func TestPostgresPostRepo_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE posts SET status").
		WithArgs("post-1", "published", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresPostRepo(db)
	if err := repo.UpdateStatus(context.Background(), "post-1", model.PostStatusPublished, time.Now()); err != nil {
		t.Fatalf("UpdateStatus() returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
