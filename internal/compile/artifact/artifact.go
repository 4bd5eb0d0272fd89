// Package artifact records compiled prompts so they can be fetched later by id.
package artifact

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrNotFound = errors.New("artifact not found")
	ErrDisabled = errors.New("artifact store disabled")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Artifact struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	ModuleType     string         `gorm:"not null;index" json:"module_type"`
	Model          string         `json:"model,omitempty"`
	CompiledPrompt string         `gorm:"type:text;not null" json:"compiled_prompt"`
	SignatureDict  datatypes.JSON `gorm:"column:signature_dict" json:"signature_dict"`
}

func (Artifact) TableName() string { return "prompt_artifact" }

// Store persists artifacts. Save assigns ID and CreatedAt when they are zero.
type Store interface {
	Save(ctx context.Context, a *Artifact) error
	Get(ctx context.Context, id uuid.UUID) (*Artifact, error)
	List(ctx context.Context, limit int) ([]*Artifact, error)
	Ping(ctx context.Context) error
	Close() error
}

func prepare(a *Artifact) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

type nopStore struct{}

// Nop is the store used when persistence is switched off.
func Nop() Store { return nopStore{} }

func (nopStore) Save(context.Context, *Artifact) error { return ErrDisabled }
func (nopStore) Get(context.Context, uuid.UUID) (*Artifact, error) {
	return nil, ErrDisabled
}
func (nopStore) List(context.Context, int) ([]*Artifact, error) { return nil, ErrDisabled }
func (nopStore) Ping(context.Context) error                     { return nil }
func (nopStore) Close() error                                   { return nil }
