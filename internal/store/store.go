package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Voice clone lifecycle statuses.
const (
	CloneStatusPending   = "pending"
	CloneStatusTraining  = "training"
	CloneStatusCompleted = "completed"
	CloneStatusFailed    = "failed"
)

// VoiceClone represents a permanently enrolled voice. Identity is the opaque
// conditioning payload, present only once the clone is completed.
type VoiceClone struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	SamplePath string    `json:"sample_path"`
	Identity   []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TranslationHistory is one processed turn of a translation session.
type TranslationHistory struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SourceLang     string    `json:"source_lang"`
	TargetLang     string    `json:"target_lang"`
	SourceText     string    `json:"source_text"`
	TranslatedText string    `json:"translated_text"`
	Speaker        string    `json:"speaker"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetVoiceClone fetches a clone by id, scoped to its owner. Returns (nil, nil)
// when no such clone exists for that owner, so identity resolution can fall
// through without treating absence as an error.
func (s *Store) GetVoiceClone(ctx context.Context, id int64, userID string) (*VoiceClone, error) {
	var c VoiceClone
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, name, status, sample_path, COALESCE(identity, ''), created_at, updated_at
		FROM voice_clones
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.Status, &c.SamplePath, &c.Identity, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get voice clone %d: %w", id, err)
	}
	return &c, nil
}

// ListPendingVoiceClones returns clones awaiting the training job, oldest first.
func (s *Store) ListPendingVoiceClones(ctx context.Context) ([]VoiceClone, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, name, status, sample_path, created_at, updated_at
		FROM voice_clones
		WHERE status = $1
		ORDER BY created_at
	`, CloneStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending voice clones: %w", err)
	}
	defer rows.Close()

	var clones []VoiceClone
	for rows.Next() {
		var c VoiceClone
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Status, &c.SamplePath, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan voice clone: %w", err)
		}
		clones = append(clones, c)
	}
	return clones, rows.Err()
}

// UpdateVoiceCloneStatus moves a clone through its lifecycle.
func (s *Store) UpdateVoiceCloneStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE voice_clones SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update voice clone %d status: %w", id, err)
	}
	return nil
}

// CompleteVoiceClone stores the computed conditioning payload and marks the
// clone completed.
func (s *Store) CompleteVoiceClone(ctx context.Context, id int64, identity []byte) error {
	_, err := s.db.Exec(ctx, `
		UPDATE voice_clones SET status = $2, identity = $3, updated_at = now() WHERE id = $1
	`, id, CloneStatusCompleted, identity)
	if err != nil {
		return fmt.Errorf("complete voice clone %d: %w", id, err)
	}
	return nil
}

// InsertTranslationHistory records one processed turn. Callers treat failures
// as log-only; history never blocks the pipeline.
func (s *Store) InsertTranslationHistory(ctx context.Context, h TranslationHistory) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO translation_history (id, user_id, source_lang, target_lang, source_text, translated_text, speaker, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.UserID, h.SourceLang, h.TargetLang, h.SourceText, h.TranslatedText, h.Speaker, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert translation history: %w", err)
	}
	return nil
}
