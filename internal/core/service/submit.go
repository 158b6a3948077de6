package service

import (
	"context"
	"fmt"

	"github.com/ecosdelcampo/fieldsync/internal/api/metrics"
	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// remoteError converts a non-2xx server response into a domain.RemoteError,
// preferring the structured message the server sent.
func remoteError(resp *ports.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := "request failed"
	if err := resp.DecodeJSON(&body); err == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	return &domain.RemoteError{Status: resp.Status, Message: msg}
}

// enqueue stages op for later replay. Storage failures are surfaced: losing
// a queued user action silently is the worst failure mode of this subsystem.
func enqueue(ctx context.Context, queue ports.QueueRepository, op *domain.Operation) (*ports.SubmitResult, error) {
	localID, err := queue.Enqueue(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("offline queue unavailable: %w", err)
	}

	metrics.OperationsEnqueuedTotal.WithLabelValues(string(op.Kind)).Inc()
	if n, err := queue.CountPending(ctx); err == nil {
		metrics.QueuePendingOperations.Set(float64(n))
	}

	return &ports.SubmitResult{Queued: true, LocalID: localID}, nil
}
