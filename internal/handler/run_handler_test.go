package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x2beta/internal/domain"
	"x2beta/internal/handler"
)

type stubRunRepo struct {
	runs map[uuid.UUID]*domain.Run
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: map[uuid.UUID]*domain.Run{}}
}

func (r *stubRunRepo) Create(ctx context.Context, run *domain.Run) error {
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *stubRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (r *stubRunRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, finishedAt *time.Time) error {
	if run, ok := r.runs[id]; ok {
		run.Status = status
		run.FinishedAt = finishedAt
	}
	return nil
}

type stubExceptionRepo struct {
	exceptions []domain.Exception
}

func (r *stubExceptionRepo) CreateBatch(ctx context.Context, exceptions []domain.Exception) error {
	r.exceptions = append(r.exceptions, exceptions...)
	return nil
}

func (r *stubExceptionRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error) {
	return r.exceptions, nil
}

func (r *stubExceptionRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	return len(r.exceptions), nil
}

func getVia(t *testing.T, h func(*gin.Context), id string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/runs/"+id, nil)
	c.Params = gin.Params{{Key: "id", Value: id}}
	h(c)
	return w
}

func TestRunHandler_GetByID(t *testing.T) {
	runs := newStubRunRepo()
	run := &domain.Run{
		ID:      uuid.New(),
		Channel: domain.ChannelAmazonMTR,
		GSTIN:   "06ABCDE1234F1Z5",
		Month:   "2025-04",
		Status:  domain.RunStatusSuccess,
	}
	require.NoError(t, runs.Create(context.Background(), run))
	h := handler.NewRunHandler(runs, &stubExceptionRepo{})

	w := getVia(t, h.GetByID, run.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	w = getVia(t, h.GetByID, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = getVia(t, h.GetByID, "nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunHandler_ListExceptions(t *testing.T) {
	runs := newStubRunRepo()
	run := &domain.Run{ID: uuid.New(), Channel: domain.ChannelFlipkart, Status: domain.RunStatusSuccess}
	require.NoError(t, runs.Create(context.Background(), run))

	exceptions := &stubExceptionRepo{exceptions: []domain.Exception{
		{RunID: run.ID, Code: domain.CodeMissingSKUMapping, Severity: domain.SeverityError},
	}}
	h := handler.NewRunHandler(runs, exceptions)

	w := getVia(t, h.ListExceptions, run.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	// Unknown run is rejected before the exception lookup.
	w = getVia(t, h.ListExceptions, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
