package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/interface/rest/middleware"
	"github.com/totegamma/peerreview/internal/scoring"
	"github.com/totegamma/peerreview/internal/usecase"
)

// --- mocks ---

type fakeStore struct {
	mu         sync.Mutex
	papers     map[string]domain.Paper
	reviews    []domain.ReviewRecord
	candidates []domain.ReviewAssignmentCandidate
	profiles   []domain.ReviewerProfile
	wallets    []domain.WalletSnapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{papers: map[string]domain.Paper{}}
}

type fakePapers struct{ *fakeStore }

func (f fakePapers) Create(ctx context.Context, paper domain.Paper) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.papers[paper.ID] = paper
	return nil
}
func (f fakePapers) Get(ctx context.Context, id string) (domain.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper, ok := f.papers[id]
	if !ok {
		return domain.Paper{}, domain.NotFoundError{Resource: "paper"}
	}
	return paper, nil
}
func (f fakePapers) TransitionStatus(ctx context.Context, id string, from, to domain.PaperStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper := f.papers[id]
	if paper.Status != from {
		return domain.ErrConsensusRace
	}
	paper.Status = to
	f.papers[id] = paper
	return nil
}
func (f fakePapers) SetLedgerTx(ctx context.Context, id, txID string) error { return nil }
func (f fakePapers) ListAwaitingConsensus(ctx context.Context, limit int) ([]domain.Paper, error) {
	return nil, nil
}
func (f fakePapers) ApplyConsensus(ctx context.Context, paperID string, to domain.PaperStatus, fields domain.ConsensusFields, outcomes []domain.ReviewOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	paper := f.papers[paperID]
	if paper.Status != domain.PaperStatusUnderReview {
		return domain.ErrConsensusRace
	}
	paper.Status = to
	paper.Consensus = fields
	f.papers[paperID] = paper
	return nil
}

type fakeReviews struct{ *fakeStore }

func (f fakeReviews) Create(ctx context.Context, review domain.ReviewRecord, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.reviews {
		if r.PaperID == review.PaperID {
			count++
		}
	}
	if count >= limit {
		return domain.ErrClaimsFull
	}
	f.reviews = append(f.reviews, review)
	return nil
}
func (f fakeReviews) Get(ctx context.Context, id string) (domain.ReviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ReviewRecord{}, domain.NotFoundError{Resource: "review"}
}
func (f fakeReviews) ListByPaper(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return f.filter(paperID, false), nil
}
func (f fakeReviews) ListSubmitted(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return f.filter(paperID, true), nil
}
func (f fakeReviews) RecordVerdict(ctx context.Context, id string, verdict domain.Verdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.reviews {
		if r.ID == id {
			f.reviews[i].Verdict = verdict
			f.reviews[i].Status = domain.ReviewStatusSubmitted
			return nil
		}
	}
	return domain.ErrNotClaimed
}
func (f fakeReviews) filter(paperID string, submittedOnly bool) []domain.ReviewRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []domain.ReviewRecord{}
	for _, r := range f.reviews {
		if r.PaperID == paperID && (!submittedOnly || r.Status == domain.ReviewStatusSubmitted) {
			result = append(result, r)
		}
	}
	return result
}

type fakeAssignments struct{ *fakeStore }

func (f fakeAssignments) UpsertCandidates(ctx context.Context, candidates []domain.ReviewAssignmentCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, candidates...)
	return nil
}
func (f fakeAssignments) MarkAssigned(ctx context.Context, paperID, passID string, accounts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.candidates {
		for _, a := range accounts {
			if f.candidates[i].PassID == passID && f.candidates[i].Account == a {
				f.candidates[i].Assigned = true
			}
		}
	}
	return nil
}
func (f fakeAssignments) ListCandidates(ctx context.Context, paperID string) ([]domain.ReviewAssignmentCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ReviewAssignmentCandidate{}, f.candidates...), nil
}

type fakeDirectory struct{ *fakeStore }

func (f fakeDirectory) ListReviewers(ctx context.Context, excludeAuthorID string) ([]domain.ReviewerProfile, error) {
	return f.profiles, nil
}
func (f fakeDirectory) GetWalletSnapshots(ctx context.Context, accounts []string) ([]domain.WalletSnapshot, error) {
	return f.wallets, nil
}
func (f fakeDirectory) GetActiveReviewCounts(ctx context.Context, reviewerIDs []string) (map[string]int, error) {
	return map[string]int{}, nil
}
func (f fakeDirectory) UpsertReviewer(ctx context.Context, profile domain.ReviewerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	return nil
}
func (f fakeDirectory) UpsertWallet(ctx context.Context, wallet domain.WalletSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wallets = append(f.wallets, wallet)
	return nil
}

type fakeSubscriber struct {
	events []peerreview.Event
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, channel string) (<-chan peerreview.Event, error) {
	ch := make(chan peerreview.Event, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	return ch, nil
}

const reviewerAccount = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func newTestServer(t *testing.T, events EventSubscriber) (*echo.Echo, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.profiles = []domain.ReviewerProfile{{
		ID:             "reviewer-1",
		ExpertiseTags:  []string{"cryptography"},
		Reputation:     300,
		IsReviewer:     true,
		StakingAccount: reviewerAccount,
	}}
	store.wallets = []domain.WalletSnapshot{{
		Account:          reviewerAccount,
		AvailableBalance: decimal.NewFromInt(100),
		StakedAmount:     decimal.Zero,
	}}

	settings := domain.DefaultAssignmentSettings()
	publication := usecase.NewPublicationUsecase(fakePapers{store}, fakeReviews{store}, fakePapers{store}, nil, nil, nil, domain.DefaultConsensusSettings())
	h := NewHandler(
		usecase.NewPaperUsecase(fakePapers{store}, fakeAssignments{store}, fakeReviews{store}, nil, settings),
		usecase.NewAssignmentUsecase(fakeDirectory{store}, fakeAssignments{store}, fakePapers{store}, nil, scoring.NewScorer(scoring.DefaultSynonyms(), 3), settings),
		usecase.NewReviewUsecase(fakePapers{store}, fakeReviews{store}, publication, nil, settings),
		usecase.NewReviewerUsecase(fakeDirectory{store}),
		events,
	)

	e := echo.New()
	e.Use(middleware.Identify)
	h.RegisterRoutes(e)
	return e, store
}

func doJSON(e *echo.Echo, method, path, requester string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if requester != "" {
		req.Header.Set(domain.RequesterIdHeader, requester)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestSubmitPaperAssignsReviewers(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPost, "/api/v1/papers", "author-1", map[string]any{
		"title":           "Lattice Signatures",
		"keywords":        []string{"cryptography"},
		"requiredReviews": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp submitPaperResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "author-1", resp.Paper.AuthorID)
	assert.Equal(t, domain.PaperStatusSubmitted, resp.Paper.Status)
	assert.True(t, resp.Assignment.Success)
	require.Len(t, resp.Assignment.AssignedReviewers, 1)
	assert.Equal(t, "reviewer-1", resp.Assignment.AssignedReviewers[0].ReviewerID)

	rec = doJSON(e, http.MethodGet, "/api/v1/papers/"+resp.Paper.ID+"/candidates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scores":{"total":`)
	assert.Len(t, store.candidates, 1)
}

func TestSubmitPaperValidation(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := doJSON(e, http.MethodPost, "/api/v1/papers", "author-1", map[string]any{"title": "No keywords"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPaperNotFound(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := doJSON(e, http.MethodGet, "/api/v1/papers/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClaimAndSubmitReview(t *testing.T) {
	e, store := newTestServer(t, nil)
	store.papers["p1"] = domain.Paper{ID: "p1", AuthorID: "author-1", RequiredReviews: 1, Status: domain.PaperStatusSubmitted}

	claim := map[string]any{"reviewerAccount": reviewerAccount, "stakeAmount": "10"}
	rec := doJSON(e, http.MethodPost, "/api/v1/papers/p1/claims", "", claim)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/papers/p1/claims", "author-1", claim)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/papers/p1/claims", "reviewer-1", claim)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var review domain.ReviewRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &review))
	assert.Equal(t, domain.PaperStatusUnderReview, store.papers["p1"].Status)

	rec = doJSON(e, http.MethodPost, "/api/v1/papers/p1/claims", "reviewer-2", claim)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/reviews/"+review.ID+"/submit", "reviewer-2", map[string]any{"verdict": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/reviews/"+review.ID+"/submit", "reviewer-1", map[string]any{"verdict": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.PaperStatusPublished, store.papers["p1"].Status)

	rec = doJSON(e, http.MethodPost, "/api/v1/papers/p1/failure", "", map[string]any{"reason": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterReviewerAndWallet(t *testing.T) {
	e, store := newTestServer(t, nil)

	rec := doJSON(e, http.MethodPut, "/api/v1/reviewers/reviewer-9", "", map[string]any{
		"expertiseTags":  []string{"AI"},
		"reputation":     10,
		"isReviewer":     true,
		"stakingAccount": "not-an-address",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/v1/wallets/"+reviewerAccount, "", map[string]any{
		"availableBalance": "42",
		"stakedAmount":     "2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, store.wallets, 2)
}

func TestEventsWebsocket(t *testing.T) {
	sub := &fakeSubscriber{events: []peerreview.Event{
		{Type: "paper.submitted", PaperID: "other"},
		{Type: "paper.assigned", PaperID: "p1"},
	}}
	e, _ := newTestServer(t, sub)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events?paper=p1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event peerreview.Event
	require.NoError(t, ws.ReadJSON(&event))
	assert.Equal(t, "paper.assigned", event.Type)
	assert.Equal(t, "p1", event.PaperID)
}
