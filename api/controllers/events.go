package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/unimaker/paygate/api/responses"
	"github.com/unimaker/paygate/api/validators"
	"github.com/unimaker/paygate/pkg/db/models"
	"github.com/unimaker/paygate/pkg/enums"
	pkgerrors "github.com/unimaker/paygate/pkg/errors"
	"github.com/unimaker/paygate/pkg/logger"
)

// EventReader is the slice of the outbox the events endpoint needs.
type EventReader interface {
	FetchSince(ctx context.Context, aggregateID uuid.UUID, after time.Time, limit int) ([]models.OutboxEvent, error)
}

type eventView struct {
	ID         uuid.UUID             `json:"id"`
	EventType  enums.OutboxEventType `json:"eventType"`
	Payload    json.RawMessage       `json:"payload"`
	RecordedAt time.Time             `json:"recordedAt"`
}

// OrderEvents lets callers poll the order's event log, e.g. to learn
// when the entitlement became unlock-ready. Cursor is the recordedAt of
// the last event seen.
func OrderEvents(reader EventReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reader == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "event reader unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		after, err := parseOptionalTime(r.URL.Query().Get("after"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := time.Time{}
		if after != nil {
			cursor = *after
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := reader.FetchSince(ctx, orderID, cursor, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch order events"))
			return
		}

		events := make([]eventView, 0, len(rows))
		for _, row := range rows {
			events = append(events, eventView{
				ID:         row.ID,
				EventType:  row.EventType,
				Payload:    row.Payload,
				RecordedAt: row.CreatedAt,
			})
		}

		responses.WriteSuccess(w, map[string]any{"events": events})
	}
}
