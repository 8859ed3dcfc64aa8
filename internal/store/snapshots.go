package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/twg-quant/riskbatch/internal/apperr"
	"github.com/twg-quant/riskbatch/internal/canonicaljson"
	"github.com/twg-quant/riskbatch/internal/domain"
)

// PutMarketSnapshot creates snapshotID's payload, or — if it already
// exists — verifies the payload hash matches (no-op) or rejects a
// differing payload with Conflict. Spec §3: "payload_hash uniquely
// determines payload; re-POST of same id with same hash is a no-op, with
// different hash is rejected".
func (s *Store) PutMarketSnapshot(ctx context.Context, snapshotID string, payload domain.MarketSnapshotPayload) (string, error) {
	hash, err := canonicaljson.Hash(payload)
	if err != nil {
		return "", apperr.InvalidInput("unable to hash snapshot payload")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.InvalidInput("unable to marshal snapshot payload")
	}

	var existing MarketSnapshotRecord
	err = s.db.WithContext(ctx).Where("snapshot_id = ?", snapshotID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := MarketSnapshotRecord{SnapshotID: snapshotID, PayloadHash: hash, Payload: raw}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return "", apperr.Internal("create market snapshot", err)
		}
		return hash, nil
	case err != nil:
		return "", apperr.Internal("lookup market snapshot", err)
	case existing.PayloadHash != hash:
		return "", apperr.Conflict(fmt.Sprintf("snapshot %s already exists with a different payload", snapshotID))
	default:
		return hash, nil // idempotent no-op
	}
}

// GetMarketSnapshot retrieves a previously stored snapshot payload.
func (s *Store) GetMarketSnapshot(ctx context.Context, snapshotID string) (domain.MarketSnapshotPayload, error) {
	var rec MarketSnapshotRecord
	err := s.db.WithContext(ctx).Where("snapshot_id = ?", snapshotID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.MarketSnapshotPayload{}, apperr.NotFound(fmt.Sprintf("market snapshot %s", snapshotID))
	}
	if err != nil {
		return domain.MarketSnapshotPayload{}, apperr.Internal("get market snapshot", err)
	}
	var payload domain.MarketSnapshotPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return domain.MarketSnapshotPayload{}, apperr.Internal("decode market snapshot payload", err)
	}
	return payload, nil
}

// CreatePositionSnapshot persists a resolved position list as a new
// PositionSnapshot, returning its generated ID and content hash (spec §3,
// §4.1 step 2).
func (s *Store) CreatePositionSnapshot(ctx context.Context, positions []domain.Position) (id string, hash string, err error) {
	hash, err = canonicaljson.Hash(positions)
	if err != nil {
		return "", "", apperr.InvalidInput("unable to hash position snapshot")
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		return "", "", apperr.InvalidInput("unable to marshal position snapshot")
	}

	id = fmt.Sprintf("pos-%s-%d", hash[:12], time.Now().UnixNano())
	rec := PositionSnapshotRecord{PositionSnapshotID: id, PayloadHash: hash, Payload: raw}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", "", apperr.Internal("create position snapshot", err)
	}
	return id, hash, nil
}

// GetPositionSnapshot retrieves a previously stored position list.
func (s *Store) GetPositionSnapshot(ctx context.Context, id string) ([]domain.Position, error) {
	var rec PositionSnapshotRecord
	err := s.db.WithContext(ctx).Where("position_snapshot_id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("position snapshot %s", id))
	}
	if err != nil {
		return nil, apperr.Internal("get position snapshot", err)
	}
	var positions []domain.Position
	if err := json.Unmarshal(rec.Payload, &positions); err != nil {
		return nil, apperr.Internal("decode position snapshot payload", err)
	}
	return positions, nil
}
