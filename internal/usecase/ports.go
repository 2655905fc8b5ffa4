package usecase

import (
	"context"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
)

// ReviewerDirectory is the read side of reviewer profiles and wallets.
type ReviewerDirectory interface {
	ListReviewers(ctx context.Context, excludeAuthorID string) ([]domain.ReviewerProfile, error)
	GetWalletSnapshots(ctx context.Context, accounts []string) ([]domain.WalletSnapshot, error)
	GetActiveReviewCounts(ctx context.Context, reviewerIDs []string) (map[string]int, error)
}

// AssignmentRepository stores the assignment audit trail.
type AssignmentRepository interface {
	UpsertCandidates(ctx context.Context, candidates []domain.ReviewAssignmentCandidate) error
	MarkAssigned(ctx context.Context, paperID, passID string, accounts []string) error
	ListCandidates(ctx context.Context, paperID string) ([]domain.ReviewAssignmentCandidate, error)
}

// PaperRepository persists papers. TransitionStatus is a compare-and-set: it
// fails with domain.ErrConsensusRace when the paper is no longer in from.
type PaperRepository interface {
	Create(ctx context.Context, paper domain.Paper) error
	Get(ctx context.Context, id string) (domain.Paper, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.PaperStatus, reason string) error
	SetLedgerTx(ctx context.Context, id, txID string) error
	ListAwaitingConsensus(ctx context.Context, limit int) ([]domain.Paper, error)
}

// ReviewRepository persists review records.
type ReviewRepository interface {
	// Create fails with domain.ErrClaimsFull once the paper holds limit reviews.
	Create(ctx context.Context, review domain.ReviewRecord, limit int) error
	Get(ctx context.Context, id string) (domain.ReviewRecord, error)
	ListByPaper(ctx context.Context, paperID string) ([]domain.ReviewRecord, error)
	ListSubmitted(ctx context.Context, paperID string) ([]domain.ReviewRecord, error)
	RecordVerdict(ctx context.Context, id string, verdict domain.Verdict) error
}

// ConsensusWriter applies a consensus decision atomically: the paper status
// compare-and-set and every review outcome commit together or not at all.
type ConsensusWriter interface {
	ApplyConsensus(ctx context.Context, paperID string, to domain.PaperStatus, fields domain.ConsensusFields, outcomes []domain.ReviewOutcome) error
}

// LedgerGateway records a final verdict on the external ledger.
type LedgerGateway interface {
	RecordOutcome(ctx context.Context, paperID string, approved bool) (string, error)
}

// EventPublisher fans events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event peerreview.Event) error
}

// Notifier tells an author about the decision on their paper.
type Notifier interface {
	NotifyDecision(ctx context.Context, paper domain.Paper) error
}

// ReviewerRegistry is the write side of the reviewer directory.
type ReviewerRegistry interface {
	UpsertReviewer(ctx context.Context, profile domain.ReviewerProfile) error
	UpsertWallet(ctx context.Context, wallet domain.WalletSnapshot) error
}
