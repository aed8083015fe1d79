package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	appctx "mecsa/internal/core/context"
	"mecsa/internal/core/tx"
	"mecsa/pkg/logger"
)

// Payloads above this size are stored zstd-compressed.
const compressThreshold = 10 * 1024

// Service writes audit rows to the application database. Writes run in
// their own transaction and never fail the business request.
type Service struct {
	repo    Repository
	txm     tx.Manager
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewService creates the audit writer.
func NewService(repo Repository, txm tx.Manager) (*Service, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Service{repo: repo, txm: txm, encoder: encoder, decoder: decoder}, nil
}

// WriteAction persists the request-level log. Best effort: failures are
// logged, not returned.
func (s *Service) WriteAction(ctx context.Context, row *ActionLog) {
	if row.ID == uuid.Nil {
		if actionID, err := uuid.Parse(appctx.GetActionID(ctx)); err == nil {
			row.ID = actionID
		} else {
			row.ID = uuid.New()
		}
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if u := appctx.GetUser(ctx); u != nil {
		row.UserID = u.UserID
		row.Username = u.Username
	}

	row.RequestBody = RedactJSON(row.RequestBody)
	row.ResponseBody = RedactJSON(row.ResponseBody)
	row.CompressionAlgo = CompressionNone
	if len(row.RequestBody)+len(row.ResponseBody) > compressThreshold {
		row.RequestBody = s.encoder.EncodeAll(row.RequestBody, nil)
		row.ResponseBody = s.encoder.EncodeAll(row.ResponseBody, nil)
		row.CompressionAlgo = CompressionZstd
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.InsertAction(ctx, row)
	})
	if err != nil {
		logger.Error(ctx, "write action log failed", "error", err)
	}
}

// Flush drains the recorder into data log rows under the request's
// correlation id. Best effort like WriteAction.
func (s *Service) Flush(ctx context.Context, r *Recorder) {
	changes := r.Drain()
	if len(changes) == 0 {
		return
	}

	actionID, err := uuid.Parse(appctx.GetActionID(ctx))
	if err != nil {
		actionID = uuid.New()
	}

	now := time.Now().UTC()
	rows := make([]DataLog, 0, len(changes))
	for _, c := range changes {
		oldJSON, err := s.encodePayload(c.OldValue)
		if err != nil {
			logger.Error(ctx, "encode audit payload failed", "error", err)
			continue
		}
		newJSON, err := s.encodePayload(c.NewValue)
		if err != nil {
			logger.Error(ctx, "encode audit payload failed", "error", err)
			continue
		}

		row := DataLog{
			ID:              uuid.New(),
			ActionID:        actionID,
			EntityType:      c.EntityType,
			EntityID:        c.EntityID,
			Action:          c.Action,
			OldValue:        oldJSON,
			NewValue:        newJSON,
			CompressionAlgo: CompressionNone,
			CreatedAt:       now,
		}
		if len(row.OldValue)+len(row.NewValue) > compressThreshold {
			row.OldValue = s.encoder.EncodeAll(row.OldValue, nil)
			row.NewValue = s.encoder.EncodeAll(row.NewValue, nil)
			row.CompressionAlgo = CompressionZstd
		}
		rows = append(rows, row)
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.InsertData(ctx, rows)
	})
	if err != nil {
		logger.Error(ctx, "write data logs failed", "error", err)
	}
}

// ListActions pages action logs for the audit endpoints.
func (s *Service) ListActions(ctx context.Context, filter ActionFilter) ([]ActionLog, int64, error) {
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	rows, total, err := s.repo.ListActions(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range rows {
		if err := s.decompressAction(&rows[i]); err != nil {
			return nil, 0, err
		}
	}
	return rows, total, nil
}

// ListDataByAction returns the entity snapshots of one action.
func (s *Service) ListDataByAction(ctx context.Context, actionID uuid.UUID) ([]DataLog, error) {
	rows, err := s.repo.ListDataByAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].CompressionAlgo != CompressionZstd {
			continue
		}
		if rows[i].OldValue, err = s.decoder.DecodeAll(rows[i].OldValue, nil); err != nil {
			return nil, fmt.Errorf("decompress old value: %w", err)
		}
		if rows[i].NewValue, err = s.decoder.DecodeAll(rows[i].NewValue, nil); err != nil {
			return nil, fmt.Errorf("decompress new value: %w", err)
		}
		rows[i].CompressionAlgo = CompressionNone
	}
	return rows, nil
}

func (s *Service) decompressAction(row *ActionLog) error {
	if row.CompressionAlgo != CompressionZstd {
		return nil
	}
	var err error
	if row.RequestBody, err = s.decoder.DecodeAll(row.RequestBody, nil); err != nil {
		return fmt.Errorf("decompress request body: %w", err)
	}
	if row.ResponseBody, err = s.decoder.DecodeAll(row.ResponseBody, nil); err != nil {
		return fmt.Errorf("decompress response body: %w", err)
	}
	row.CompressionAlgo = CompressionNone
	return nil
}

func (s *Service) encodePayload(m map[string]any) (json.RawMessage, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(RedactMap(m))
}
