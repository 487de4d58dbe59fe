package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/api/dto"
	"github.com/cuongbtq/pi-work/internal/api/model"
	"github.com/cuongbtq/pi-work/internal/api/storage"
	"github.com/cuongbtq/pi-work/internal/events"
	"github.com/cuongbtq/pi-work/internal/pi"
	"github.com/cuongbtq/pi-work/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jobAID = "0b6f3e3a-4a52-4a4e-9d8e-0000000000aa"
	jobBID = "0b6f3e3a-4a52-4a4e-9d8e-0000000000bb"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu         sync.Mutex
	jobs       []model.Job
	categories []string
	swipes     []model.Swipe
	payments   []model.Payment
	lastFilter storage.JobFilter
	err        error
}

func (s *fakeStore) GetJobByID(_ context.Context, jobID string) (*model.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.jobs {
		if s.jobs[i].JobID == jobID {
			return &s.jobs[i], nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (s *fakeStore) ListJobs(_ context.Context, filter storage.JobFilter) ([]model.Job, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) > filter.PageSize+1 {
		return s.jobs[:filter.PageSize+1], nil
	}
	return s.jobs, nil
}

func (s *fakeStore) ListCategories(context.Context) ([]string, error) {
	return s.categories, s.err
}

func (s *fakeStore) RecordSwipe(_ context.Context, swipe *model.Swipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.swipes = append(s.swipes, *swipe)
	return nil
}

func (s *fakeStore) UpsertPayment(_ context.Context, payment *model.Payment) error {
	if s.err != nil {
		return s.err
	}
	s.payments = append(s.payments, *payment)
	return nil
}

type publishedEvent struct {
	id, eventType string
	body          []byte
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

func (p *fakePublisher) PublishWithRetry(_ context.Context, messageID, eventType string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{id: messageID, eventType: eventType, body: body})
	return nil
}

type fakePayments struct {
	payment *pi.Payment
	err     error
	calls   []string
}

func (f *fakePayments) Approve(_ context.Context, paymentID string) (*pi.Payment, error) {
	f.calls = append(f.calls, "approve:"+paymentID)
	return f.payment, f.err
}

func (f *fakePayments) Complete(_ context.Context, paymentID, txID string) (*pi.Payment, error) {
	f.calls = append(f.calls, "complete:"+paymentID+":"+txID)
	return f.payment, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) error { return f.err }

func sampleJobs() []model.Job {
	return []model.Job{
		{
			JobID: jobAID, Title: "Chop Firewood", Payment: decimal.NewFromInt(50),
			Employer: "John Smith", EmployerRating: 4.8, Category: "Manual Labor",
			Deadline: fixedNow.AddDate(0, 0, 5), Status: domain.JobStatusOpen, CreatedAt: fixedNow,
		},
		{
			JobID: jobBID, Title: "Office Cleaning", Payment: decimal.NewFromInt(35),
			Employer: "Clean Solutions Ltd", EmployerRating: 4.6, Category: "Cleaning",
			Deadline: fixedNow.AddDate(0, 0, 10), Status: domain.JobStatusOpen, CreatedAt: fixedNow.Add(-time.Hour),
		},
	}
}

func newTestDeps() (*Dependencies, *fakeStore, *fakePublisher) {
	store := &fakeStore{jobs: sampleJobs(), categories: []string{"Cleaning", "Manual Labor"}}
	publisher := &fakePublisher{}
	deps := &Dependencies{
		Logger:      logger.NewDiscard().Logger,
		Store:       store,
		Publisher:   publisher,
		ServiceName: "piwork-api-service",
		Now:         func() time.Time { return fixedNow },
	}
	return deps, store, publisher
}

func newTestEngine(deps *Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	jobs := NewJobHandler(deps)
	swipes := NewSwipeHandler(deps)
	payments := NewPaymentHandler(deps)

	r.GET("/health", HealthHandler(deps))
	r.GET("/api/v1/jobs", jobs.ListJobs)
	r.GET("/api/v1/jobs/:job_id", jobs.GetJob)
	r.GET("/api/v1/categories", jobs.ListCategories)
	r.POST("/api/v1/swipes", swipes.RecordSwipe)
	r.POST("/api/v1/payments/:payment_id/approve", payments.ApprovePayment)
	r.POST("/api/v1/payments/:payment_id/complete", payments.CompletePayment)
	return r
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantStatus int
	}{
		{name: "no checker", health: nil, wantStatus: http.StatusOK},
		{name: "healthy database", health: fakeHealth{}, wantStatus: http.StatusOK},
		{name: "database down", health: fakeHealth{err: errors.New("ping failed")}, wantStatus: http.StatusServiceUnavailable},
		{name: "all dependencies up", health: HealthCheckers{fakeHealth{}, fakeHealth{}}, wantStatus: http.StatusOK},
		{name: "broker down", health: HealthCheckers{fakeHealth{}, fakeHealth{err: errors.New("channel closed")}}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _, _ := newTestDeps()
			deps.Health = tt.health

			w := doRequest(newTestEngine(deps), http.MethodGet, "/health", nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), "piwork-api-service")
		})
	}
}

func TestListJobs(t *testing.T) {
	deps, store, _ := newTestDeps()
	r := newTestEngine(deps)

	w := doRequest(r, http.MethodGet, "/api/v1/jobs?category=Cleaning", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "Chop Firewood", resp.Jobs[0].Title)
	assert.Equal(t, "50", resp.Jobs[0].Payment.String())
	assert.Empty(t, resp.NextCursor)

	assert.Equal(t, "Cleaning", store.lastFilter.Category)
	assert.Equal(t, defaultPageSize, store.lastFilter.PageSize)
	assert.Nil(t, store.lastFilter.Cursor)
}

func TestListJobs_Pagination(t *testing.T) {
	deps, store, _ := newTestDeps()
	r := newTestEngine(deps)

	w := doRequest(r, http.MethodGet, "/api/v1/jobs?page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	require.NotEmpty(t, resp.NextCursor)

	cursor, err := DecodeJobCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, jobAID, cursor.JobID)
	assert.True(t, fixedNow.Equal(cursor.CreatedAt))

	w = doRequest(r, http.MethodGet, "/api/v1/jobs?page_size=1&cursor="+resp.NextCursor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.lastFilter.Cursor)
	assert.Equal(t, jobAID, store.lastFilter.Cursor.JobID)
}

func TestListJobs_PageSizeBounds(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "", want: defaultPageSize},
		{query: "?page_size=0", want: defaultPageSize},
		{query: "?page_size=500", want: maxPageSize},
		{query: "?page_size=25", want: 25},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			deps, store, _ := newTestDeps()
			w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/jobs"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, store.lastFilter.PageSize)
		})
	}
}

func TestListJobs_Errors(t *testing.T) {
	t.Run("bad cursor", func(t *testing.T) {
		deps, _, _ := newTestDeps()
		w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/jobs?cursor=@@@", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad page size", func(t *testing.T) {
		deps, _, _ := newTestDeps()
		w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/jobs?page_size=ten", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		deps, store, _ := newTestDeps()
		store.err = errors.New("connection refused")
		w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/jobs", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetJob(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		wantStatus int
	}{
		{name: "found", jobID: jobBID, wantStatus: http.StatusOK},
		{name: "not a uuid", jobID: "job-1", wantStatus: http.StatusBadRequest},
		{name: "missing", jobID: "0b6f3e3a-4a52-4a4e-9d8e-0000000000ff", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _, _ := newTestDeps()
			w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/jobs/"+tt.jobID, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestListCategories(t *testing.T) {
	deps, _, _ := newTestDeps()

	w := doRequest(newTestEngine(deps), http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories":["Cleaning","Manual Labor"]}`, w.Body.String())
}

func TestRecordSwipe(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		wantMatch bool
		wantMsg   string
	}{
		{name: "accept", action: "accept", wantMatch: true, wantMsg: "Job accepted! You'll be notified when employer responds."},
		{name: "reject", action: "reject", wantMatch: false, wantMsg: "Job rejected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, store, publisher := newTestDeps()

			w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/swipes", dto.SwipeRequest{
				JobID: jobAID, UserID: "demo_user", Action: tt.action,
			})
			require.Equal(t, http.StatusOK, w.Code)

			var resp dto.SwipeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMatch, resp.Match)
			assert.Equal(t, tt.wantMsg, resp.Message)

			require.Len(t, store.swipes, 1)
			assert.Equal(t, resp.SwipeID, store.swipes[0].SwipeID)
			assert.Equal(t, tt.action, store.swipes[0].Action)

			require.Len(t, publisher.published, 1)
			assert.Equal(t, events.TypeSwipeRecorded, publisher.published[0].eventType)

			env, err := events.Decode(publisher.published[0].body)
			require.NoError(t, err)
			assert.Equal(t, publisher.published[0].id, env.ID)

			var payload events.SwipeRecorded
			require.NoError(t, env.DecodePayload(&payload))
			assert.Equal(t, resp.SwipeID, payload.SwipeID)
			assert.Equal(t, jobAID, payload.JobID)
		})
	}
}

func TestRecordSwipe_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "unknown action", body: map[string]string{"job_id": jobAID, "user_id": "u", "action": "maybe"}},
		{name: "missing user", body: map[string]string{"job_id": jobAID, "action": "accept"}},
		{name: "job id not a uuid", body: map[string]string{"job_id": "1", "user_id": "u", "action": "accept"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, store, publisher := newTestDeps()
			w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/swipes", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, store.swipes)
			assert.Empty(t, publisher.published)
		})
	}
}

func TestRecordSwipe_PublishFailureIsNotReturned(t *testing.T) {
	deps, store, publisher := newTestDeps()
	publisher.err = errors.New("broker down")

	w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/swipes", dto.SwipeRequest{
		JobID: jobAID, UserID: "demo_user", Action: "reject",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.swipes, 1)
}

func TestRecordSwipe_StorageFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "insert failed", err: errors.New("insert failed"), wantStatus: http.StatusInternalServerError},
		{name: "unknown job", err: domain.ErrJobNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, store, publisher := newTestDeps()
			store.err = tt.err

			w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/swipes", dto.SwipeRequest{
				JobID: jobAID, UserID: "demo_user", Action: "accept",
			})
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, publisher.published)
		})
	}
}

func piPayment() *pi.Payment {
	return &pi.Payment{
		Identifier: "pay-1",
		UserUID:    "uid-1",
		Amount:     decimal.NewFromInt(50),
		Memo:       "Chop Firewood",
		Metadata:   map[string]any{domain.MetadataJobID: jobAID, domain.MetadataEmployer: "John Smith"},
	}
}

func TestPayments_DisabledWithoutAPIKey(t *testing.T) {
	deps, _, _ := newTestDeps()
	r := newTestEngine(deps)

	w := doRequest(r, http.MethodPost, "/api/v1/payments/pay-1/approve", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/payments/pay-1/complete", dto.CompletePaymentRequest{TxID: "tx"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestApprovePayment(t *testing.T) {
	deps, store, publisher := newTestDeps()
	platform := &fakePayments{payment: piPayment()}
	deps.Payments = platform

	w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.PaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.PaymentStatusApproved, resp.Status)
	assert.Equal(t, jobAID, resp.JobID)

	assert.Equal(t, []string{"approve:pay-1"}, platform.calls)
	require.Len(t, store.payments, 1)
	assert.Equal(t, domain.PaymentStatusApproved, store.payments[0].Status)
	assert.False(t, store.payments[0].TxID.Valid)
	assert.Empty(t, publisher.published)
}

func TestCompletePayment(t *testing.T) {
	deps, store, publisher := newTestDeps()
	platform := &fakePayments{payment: piPayment()}
	deps.Payments = platform

	w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/complete", dto.CompletePaymentRequest{TxID: "tx-1"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"complete:pay-1:tx-1"}, platform.calls)
	require.Len(t, store.payments, 1)
	assert.Equal(t, "tx-1", store.payments[0].TxID.String)
	assert.Equal(t, domain.PaymentStatusCompleted, store.payments[0].Status)

	require.Len(t, publisher.published, 1)
	env, err := events.Decode(publisher.published[0].body)
	require.NoError(t, err)
	assert.Equal(t, events.TypePaymentCompleted, env.Type)

	var payload events.PaymentCompleted
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, jobAID, payload.JobID)
	assert.Equal(t, "tx-1", payload.TxID)
}

func TestCompletePayment_Errors(t *testing.T) {
	t.Run("missing txid", func(t *testing.T) {
		deps, _, _ := newTestDeps()
		platform := &fakePayments{payment: piPayment()}
		deps.Payments = platform

		w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/complete", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, platform.calls)
	})

	t.Run("unknown payment", func(t *testing.T) {
		deps, _, _ := newTestDeps()
		deps.Payments = &fakePayments{err: &pi.APIError{StatusCode: http.StatusNotFound, Body: "not found"}}

		w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/complete", dto.CompletePaymentRequest{TxID: "tx-1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("platform unreachable", func(t *testing.T) {
		deps, _, publisher := newTestDeps()
		deps.Payments = &fakePayments{err: errors.New("dial tcp: timeout")}

		w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/complete", dto.CompletePaymentRequest{TxID: "tx-1"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Empty(t, publisher.published)
	})

	t.Run("payment without job metadata publishes nothing", func(t *testing.T) {
		deps, store, publisher := newTestDeps()
		payment := piPayment()
		payment.Metadata = nil
		deps.Payments = &fakePayments{payment: payment}

		w := doRequest(newTestEngine(deps), http.MethodPost, "/api/v1/payments/pay-1/complete", dto.CompletePaymentRequest{TxID: "tx-1"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, store.payments, 1)
		assert.Empty(t, publisher.published)
	})
}

func TestJobCursor_RoundTrip(t *testing.T) {
	in := &storage.JobCursor{CreatedAt: fixedNow.Add(123 * time.Nanosecond), JobID: jobAID}

	out, err := DecodeJobCursor(EncodeJobCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.JobID, out.JobID)

	empty, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeJobCursor("bm9waXBl")
	assert.Error(t, err)
}
