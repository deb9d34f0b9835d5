package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"videogen-server/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

var ErrGenerationNotFound = errors.New("generation not found")

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	db, err := sql.Open("mysql", config.AppConfig.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to initialize gorm: %v", err)
	}

	if err := GormDB.AutoMigrate(&Generation{}); err != nil {
		log.Fatalf("failed to migrate generation table: %v", err)
	}
	log.Println("[DB] connected, generation table ready")
}

// GenerationRepo persists Generation records through gorm.
type GenerationRepo struct {
	db *gorm.DB
	// ActiveWindow bounds how old an in-flight record may be and still
	// count as active. Zero disables the bound.
	ActiveWindow time.Duration
}

func NewGenerationRepo(db *gorm.DB) *GenerationRepo {
	return &GenerationRepo{db: db}
}

func (r *GenerationRepo) Create(ctx context.Context, g *Generation) error {
	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GenerationRepo) Get(ctx context.Context, id string) (*Generation, error) {
	var g Generation
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindActive returns the in-flight generation of a session, if any. Records
// older than ActiveWindow are skipped: their worker is gone.
func (r *GenerationRepo) FindActive(ctx context.Context, sessionID string) (*Generation, error) {
	var g Generation
	q := r.db.WithContext(ctx).
		Where("session_id = ? AND state IN ?", sessionID, []string{StateCreating, StateGenerating})
	if r.ActiveWindow > 0 {
		q = q.Where("created_at > ?", time.Now().Add(-r.ActiveWindow))
	}
	err := q.Order("created_at DESC").First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *GenerationRepo) MarkStarted(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"started_at": at,
	})
}

// SaveSnapshot overwrites the live progress columns with snap.
func (r *GenerationRepo) SaveSnapshot(ctx context.Context, id string, snap Snapshot) error {
	var g Generation
	g.Apply(snap)
	cols := []string{"state", "progress", "phase", "phase_label", "phases", "remote_status"}
	if snap.ProjectID != "" {
		cols = append(cols, "project_id")
	}
	return r.save(ctx, id, &g, cols)
}

func (r *GenerationRepo) SaveOutcome(ctx context.Context, id string, out Outcome, at time.Time) error {
	var g Generation
	g.Finish(out, at)
	cols := []string{"state", "video_url", "published_urls", "failure", "error", "finished_at"}
	if out.ProjectID != "" {
		cols = append(cols, "project_id")
	}
	if out.State == StateCompleted {
		cols = append(cols, "progress")
	}
	return r.save(ctx, id, &g, cols)
}

func (r *GenerationRepo) SetArchivedURL(ctx context.Context, id, url string) error {
	return r.update(ctx, id, map[string]interface{}{
		"archived_url": url,
	})
}

func (r *GenerationRepo) update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	if err := r.db.WithContext(ctx).Model(&Generation{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}
	return nil
}

// save writes only cols from g, zero values included.
func (r *GenerationRepo) save(ctx context.Context, id string, g *Generation, cols []string) error {
	g.UpdatedAt = time.Now()
	cols = append(cols, "updated_at")
	if err := r.db.WithContext(ctx).Model(&Generation{}).Where("id = ?", id).Select(cols).Updates(g).Error; err != nil {
		return fmt.Errorf("update generation %s: %w", id, err)
	}
	return nil
}
