package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
)

type mockDirectory struct {
	profiles []domain.ReviewerProfile
	wallets  []domain.WalletSnapshot
	counts   map[string]int
	listErr  error
	calls    int
}

func (m *mockDirectory) ListReviewers(ctx context.Context, excludeAuthorID string) ([]domain.ReviewerProfile, error) {
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	if _, ok := ctx.Deadline(); !ok {
		panic("directory called without deadline")
	}
	return m.profiles, nil
}
func (m *mockDirectory) GetWalletSnapshots(ctx context.Context, accounts []string) ([]domain.WalletSnapshot, error) {
	return m.wallets, nil
}
func (m *mockDirectory) GetActiveReviewCounts(ctx context.Context, reviewerIDs []string) (map[string]int, error) {
	if m.counts == nil {
		return map[string]int{}, nil
	}
	return m.counts, nil
}

// memStore is an in-memory stand-in for the paper, review, assignment and
// consensus repositories.
type memStore struct {
	mu          sync.Mutex
	papers      map[string]domain.Paper
	reviews     map[string]domain.ReviewRecord
	reviewOrder []string
	candidates  []domain.ReviewAssignmentCandidate
	applied     int
	ledgerTx    map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		papers:   map[string]domain.Paper{},
		reviews:  map[string]domain.ReviewRecord{},
		ledgerTx: map[string]string{},
	}
}

func (m *memStore) Create(ctx context.Context, paper domain.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.papers[paper.ID] = paper
	return nil
}
func (m *memStore) Get(ctx context.Context, id string) (domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paper, ok := m.papers[id]
	if !ok {
		return domain.Paper{}, domain.NotFoundError{Resource: "paper"}
	}
	return paper, nil
}
func (m *memStore) TransitionStatus(ctx context.Context, id string, from, to domain.PaperStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	paper, ok := m.papers[id]
	if !ok {
		return domain.NotFoundError{Resource: "paper"}
	}
	if paper.Status != from {
		return domain.ErrConsensusRace
	}
	paper.Status = to
	paper.FailureReason = reason
	m.papers[id] = paper
	return nil
}
func (m *memStore) SetLedgerTx(ctx context.Context, id, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	paper := m.papers[id]
	paper.LedgerTxID = txID
	m.papers[id] = paper
	return nil
}
func (m *memStore) ListAwaitingConsensus(ctx context.Context, limit int) ([]domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []domain.Paper{}
	for _, p := range m.papers {
		if p.Status == domain.PaperStatusUnderReview {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *memStore) ApplyConsensus(ctx context.Context, paperID string, to domain.PaperStatus, fields domain.ConsensusFields, outcomes []domain.ReviewOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	paper := m.papers[paperID]
	if paper.Status != domain.PaperStatusUnderReview {
		return domain.ErrConsensusRace
	}
	paper.Status = to
	paper.Consensus = fields
	m.papers[paperID] = paper
	now := time.Now()
	for _, o := range outcomes {
		review := m.reviews[o.ReviewID]
		aligned := o.Aligned
		review.Aligned = &aligned
		review.RewardAmount = o.Reward
		review.SlashedAmount = o.Slash
		review.SettledAt = &now
		m.reviews[o.ReviewID] = review
	}
	m.applied++
	return nil
}

type memReviews struct{ *memStore }

func (m memReviews) Create(ctx context.Context, review domain.ReviewRecord, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, existing := range m.reviews {
		if existing.PaperID != review.PaperID {
			continue
		}
		if existing.ReviewerID == review.ReviewerID {
			return domain.ErrAlreadyClaimed
		}
		count++
	}
	if count >= limit {
		return domain.ErrClaimsFull
	}
	m.reviews[review.ID] = review
	m.reviewOrder = append(m.reviewOrder, review.ID)
	return nil
}
func (m memReviews) Get(ctx context.Context, id string) (domain.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[id]
	if !ok {
		return domain.ReviewRecord{}, domain.NotFoundError{Resource: "review"}
	}
	return review, nil
}
func (m memReviews) ListByPaper(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return m.list(paperID, false), nil
}
func (m memReviews) ListSubmitted(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return m.list(paperID, true), nil
}
func (m memReviews) RecordVerdict(ctx context.Context, id string, verdict domain.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review := m.reviews[id]
	if review.Status != domain.ReviewStatusClaimed {
		return domain.ErrNotClaimed
	}
	now := time.Now()
	review.Verdict = verdict
	review.Status = domain.ReviewStatusSubmitted
	review.SubmittedAt = &now
	m.reviews[id] = review
	return nil
}
func (m memReviews) list(paperID string, submittedOnly bool) []domain.ReviewRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []domain.ReviewRecord{}
	for _, id := range m.reviewOrder {
		r := m.reviews[id]
		if r.PaperID != paperID {
			continue
		}
		if submittedOnly && r.Status != domain.ReviewStatusSubmitted {
			continue
		}
		result = append(result, r)
	}
	return result
}

type memAssignments struct{ *memStore }

func (m memAssignments) UpsertCandidates(ctx context.Context, candidates []domain.ReviewAssignmentCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, candidates...)
	return nil
}
func (m memAssignments) MarkAssigned(ctx context.Context, paperID, passID string, accounts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	selected := map[string]bool{}
	for _, a := range accounts {
		selected[a] = true
	}
	now := time.Now()
	for i, c := range m.candidates {
		if c.PaperID == paperID && c.PassID == passID && selected[c.Account] {
			m.candidates[i].Assigned = true
			m.candidates[i].AssignedAt = &now
		}
	}
	return nil
}
func (m memAssignments) ListCandidates(ctx context.Context, paperID string) ([]domain.ReviewAssignmentCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []domain.ReviewAssignmentCandidate{}
	for _, c := range m.candidates {
		if c.PaperID == paperID {
			result = append(result, c)
		}
	}
	return result, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []peerreview.Event
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, event peerreview.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.events))
	for i, e := range m.events {
		result[i] = e.Type
	}
	return result
}

type mockLedger struct {
	mu      sync.Mutex
	records map[string]bool
	err     error
}

func (m *mockLedger) RecordOutcome(ctx context.Context, paperID string, approved bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.records == nil {
		m.records = map[string]bool{}
	}
	m.records[paperID] = approved
	return "0xtx-" + paperID, nil
}

type mockNotifier struct {
	notified []string
}

func (m *mockNotifier) NotifyDecision(ctx context.Context, paper domain.Paper) error {
	m.notified = append(m.notified, paper.ID)
	return nil
}
