package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avollmer/oauthd/internal/mocks"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/testutil"
)

func TestAuditRecorder_Record_Defaults(t *testing.T) {
	ctx := context.Background()
	store := &mocks.AuditStore{}
	store.On("Append", mock.Anything, mock.MatchedBy(func(event model.AuditEvent) bool {
		return event.ID != uuid.Nil && !event.CreatedAt.IsZero() && event.Severity == model.SeverityInfo
	})).Return(nil)

	recorder := NewAuditRecorder(store, true, 100, testutil.MakeNoopLogger())
	err := recorder.Record(ctx, model.AuditEvent{Action: "token.refresh", Status: model.AuditSuccess})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAuditRecorder_Record_FailClosed(t *testing.T) {
	ctx := context.Background()
	store := &mocks.AuditStore{}
	store.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	recorder := NewAuditRecorder(store, true, 100, testutil.MakeNoopLogger())
	err := recorder.Record(ctx, model.AuditEvent{Action: "rbac.assign_role", Status: model.AuditSuccess})
	assert.ErrorIs(t, err, model.ErrAuditRejected)
}

func TestAuditRecorder_Record_FailOpen(t *testing.T) {
	ctx := context.Background()
	store := &mocks.AuditStore{}
	store.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	recorder := NewAuditRecorder(store, false, 100, testutil.MakeNoopLogger())
	err := recorder.Record(ctx, model.AuditEvent{Action: "token.introspect", Status: model.AuditSuccess})
	assert.NoError(t, err)
}

func TestAuditRecorder_Query_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	store := &mocks.AuditStore{}
	store.On("Query", mock.Anything, mock.MatchedBy(func(filter model.AuditFilter) bool {
		return filter.Limit == 50 && filter.Offset == 0
	})).Return([]model.AuditEvent{}, nil)

	recorder := NewAuditRecorder(store, true, 50, testutil.MakeNoopLogger())

	_, err := recorder.Query(ctx, model.AuditFilter{Limit: 10000, Offset: -3})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAuditArchiver_Export(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	events := []model.AuditEvent{
		{ID: uuid.New(), Action: "token.refresh", Status: model.AuditFailure, Severity: model.SeverityAttack, CreatedAt: from.Add(time.Hour)},
		{ID: uuid.New(), Action: "code.exchange", Status: model.AuditSuccess, Severity: model.SeverityInfo, CreatedAt: from.Add(2 * time.Hour)},
	}

	store := &mocks.AuditStore{}
	store.On("Query", mock.Anything, mock.Anything).Return(events, nil)

	var uploaded bytes.Buffer
	storage := &mocks.ArchiveStorage{}
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return key == "audit/20260101T000000Z_20260201T000000Z.jsonl"
	}), mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		_, err := io.Copy(&uploaded, args.Get(2).(io.Reader))
		require.NoError(t, err)
	}).Return(nil)

	recorder := NewAuditRecorder(store, true, 100, testutil.MakeNoopLogger())
	archiver := NewAuditArchiver(recorder, storage, testutil.MakeNoopLogger())

	key, err := archiver.Export(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, "audit/20260101T000000Z_20260201T000000Z.jsonl", key)

	lines := bytes.Split(bytes.TrimSpace(uploaded.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "token.refresh", first["action"])
	assert.Equal(t, "attack", first["severity"])
}

func TestAuditArchiver_Export_UploadError(t *testing.T) {
	ctx := context.Background()
	store := &mocks.AuditStore{}
	store.On("Query", mock.Anything, mock.Anything).Return([]model.AuditEvent{}, nil)

	storage := &mocks.ArchiveStorage{}
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

	recorder := NewAuditRecorder(store, true, 100, testutil.MakeNoopLogger())
	archiver := NewAuditArchiver(recorder, storage, testutil.MakeNoopLogger())

	_, err := archiver.Export(ctx, time.Now().Add(-time.Hour), time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload audit archive")
}
