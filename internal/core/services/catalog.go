package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driving"
)

// Ensure catalogService implements CatalogService
var _ driving.CatalogService = (*catalogService)(nil)

// catalogService maintains the ATT&CK object catalog: persistent rows keyed
// by STIX id plus an in-memory snapshot shared read-only across jobs.
type catalogService struct {
	store  driven.AttackObjectStore
	logger *slog.Logger

	mu         sync.RWMutex
	byID       map[string]*domain.AttackObject
	byAttackID map[string]*domain.AttackObject
	all        []*domain.AttackObject
}

// NewCatalogService creates a CatalogService. Call Refresh (or LoadBundle)
// before serving lookups.
func NewCatalogService(store driven.AttackObjectStore, logger *slog.Logger) driving.CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		store:      store,
		logger:     logger,
		byID:       make(map[string]*domain.AttackObject),
		byAttackID: make(map[string]*domain.AttackObject),
	}
}

// stixBundle is the subset of a STIX 2.x bundle the catalog load reads.
type stixBundle struct {
	Type    string       `json:"type"`
	Objects []stixObject `json:"objects"`
}

type stixObject struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Name               string `json:"name"`
	Revoked            bool   `json:"revoked"`
	Deprecated         bool   `json:"x_mitre_deprecated"`
	IsSubTechnique     bool   `json:"x_mitre_is_subtechnique"`
	ExternalReferences []struct {
		SourceName string `json:"source_name"`
		ExternalID string `json:"external_id"`
		URL        string `json:"url"`
	} `json:"external_references"`
}

// LoadBundle parses a STIX bundle and upserts its attack-patterns by STIX id.
// Revoked and deprecated objects are skipped. Idempotent: reloading the same
// feed updates rows in place and row ids stay stable.
func (s *catalogService) LoadBundle(ctx context.Context, r io.Reader) (int, error) {
	var bundle stixBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return 0, fmt.Errorf("decode STIX bundle: %w", err)
	}
	if bundle.Type != "bundle" {
		return 0, fmt.Errorf("%w: expected a STIX bundle, got %q", domain.ErrInvalidInput, bundle.Type)
	}

	now := time.Now().UTC()
	var objects []*domain.AttackObject
	for _, obj := range bundle.Objects {
		if obj.Type != "attack-pattern" || obj.Revoked || obj.Deprecated {
			continue
		}

		// Objects also carry capec and other cross-references; only the
		// mitre-attack entry holds the technique id.
		var attackID, attackURL, matrix string
		for _, ref := range obj.ExternalReferences {
			if ref.SourceName == "mitre-attack" && ref.ExternalID != "" && ref.URL != "" {
				attackID = ref.ExternalID
				attackURL = ref.URL
				matrix = ref.SourceName
				break
			}
		}
		if attackID == "" {
			continue
		}

		attackType := domain.AttackTypeTechnique
		if obj.IsSubTechnique {
			attackType = domain.AttackTypeSubTechnique
		}

		objects = append(objects, &domain.AttackObject{
			ID:         domain.GenerateID(), // kept only for new rows; upsert preserves existing ids
			Name:       obj.Name,
			AttackID:   attackID,
			AttackURL:  attackURL,
			Matrix:     matrix,
			AttackType: attackType,
			StixType:   obj.Type,
			StixID:     obj.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if len(objects) == 0 {
		return 0, fmt.Errorf("%w: bundle contains no usable attack-patterns", domain.ErrInvalidInput)
	}

	if err := s.store.UpsertBatch(ctx, objects); err != nil {
		return 0, fmt.Errorf("upsert attack objects: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return 0, err
	}

	s.logger.Info("attack catalog loaded", "objects", len(objects))
	return len(objects), nil
}

// Refresh rebuilds the in-memory snapshot from the store.
func (s *catalogService) Refresh(ctx context.Context) error {
	objects, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load attack objects: %w", err)
	}

	byID := make(map[string]*domain.AttackObject, len(objects))
	byAttackID := make(map[string]*domain.AttackObject, len(objects))
	for _, obj := range objects {
		byID[obj.ID] = obj
		byAttackID[obj.AttackID] = obj
	}

	s.mu.Lock()
	s.byID = byID
	s.byAttackID = byAttackID
	s.all = objects
	s.mu.Unlock()

	return nil
}

func (s *catalogService) Get(id string) (*domain.AttackObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byID[id]
	return obj, ok
}

func (s *catalogService) GetByAttackID(attackID string) (*domain.AttackObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.byAttackID[attackID]
	return obj, ok
}

func (s *catalogService) All() []*domain.AttackObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.AttackObject, len(s.all))
	copy(out, s.all)
	return out
}

func (s *catalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}
