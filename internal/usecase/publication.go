package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/consensus"
	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/schemas"
)

// FinalizeResult reports one consensus attempt. Applied is false when the
// paper was not ready or another writer already decided it.
type FinalizeResult struct {
	Applied   bool             `json:"applied"`
	Reason    string           `json:"reason,omitempty"`
	Paper     domain.Paper     `json:"paper"`
	Consensus consensus.Result `json:"consensus"`
}

type PublicationUsecase struct {
	papers    PaperRepository
	reviews   ReviewRepository
	writer    ConsensusWriter
	ledger    LedgerGateway
	publisher EventPublisher
	notifier  Notifier
	settings  domain.ConsensusSettings
}

func NewPublicationUsecase(
	papers PaperRepository,
	reviews ReviewRepository,
	writer ConsensusWriter,
	ledger LedgerGateway,
	publisher EventPublisher,
	notifier Notifier,
	settings domain.ConsensusSettings,
) *PublicationUsecase {
	return &PublicationUsecase{
		papers:    papers,
		reviews:   reviews,
		writer:    writer,
		ledger:    ledger,
		publisher: publisher,
		notifier:  notifier,
		settings:  settings,
	}
}

// Finalize evaluates the submitted reviews of an UnderReview paper and moves
// it to Published or Rejected. Losing the status race to a concurrent
// finalizer is not an error.
func (uc *PublicationUsecase) Finalize(ctx context.Context, paperID string) (FinalizeResult, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.Finalize")
	defer span.End()
	span.SetAttributes(attribute.String("PaperID", paperID))

	paper, err := uc.papers.Get(ctx, paperID)
	if err != nil {
		return FinalizeResult{}, err
	}
	result := FinalizeResult{Paper: paper}
	if paper.Status != domain.PaperStatusUnderReview {
		result.Reason = fmt.Sprintf("paper %s is %s", paper.ID, paper.Status)
		return result, nil
	}

	submitted, err := uc.reviews.ListSubmitted(ctx, paper.ID)
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "PublicationUsecase.Finalize: reviews.ListSubmitted failed")
	}
	if len(submitted) == 0 || len(submitted) < paper.RequiredReviews {
		result.Reason = fmt.Sprintf("waiting for reviews: %d of %d submitted", len(submitted), paper.RequiredReviews)
		return result, nil
	}

	evaluated, err := consensus.Evaluate(submitted, uc.settings)
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "PublicationUsecase.Finalize: consensus.Evaluate failed")
	}
	result.Consensus = evaluated

	now := time.Now().UTC()
	fields := domain.ConsensusFields{
		Reached:   evaluated.ConsensusReached,
		Verdict:   evaluated.Approved,
		ReachedAt: &now,
	}
	if evaluated.Approved {
		fields.PublishedAt = &now
	}

	err = uc.writer.ApplyConsensus(ctx, paper.ID, evaluated.Status(), fields, evaluated.Outcomes)
	if errors.Is(err, domain.ErrConsensusRace) {
		logger.Info("consensus already applied", "paper", paper.ID)
		result.Reason = "consensus already applied"
		return result, nil
	}
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "PublicationUsecase.Finalize: writer.ApplyConsensus failed")
	}

	paper.Status = evaluated.Status()
	paper.Consensus = fields
	paper.UpdatedAt = now
	result.Applied = true

	if uc.ledger != nil {
		txID, err := uc.ledger.RecordOutcome(ctx, paper.ID, evaluated.Approved)
		if err != nil {
			logger.Error("ledger record failed", "paper", paper.ID, "err", err)
		} else if err := uc.papers.SetLedgerTx(ctx, paper.ID, txID); err != nil {
			logger.Error("failed to store ledger tx", "paper", paper.ID, "tx", txID, "err", err)
		} else {
			paper.LedgerTxID = txID
		}
	}
	result.Paper = paper

	logger.Info("consensus applied",
		"paper", paper.ID,
		"status", paper.Status,
		"accept", evaluated.AcceptVotes,
		"reject", evaluated.RejectVotes,
		"supermajority", evaluated.ConsensusReached,
	)

	eventType := schemas.PaperRejected
	if evaluated.Approved {
		eventType = schemas.PaperPublished
	}
	emit(ctx, uc.publisher, eventType, paper.ID, "", peerreview.VerdictPayload{
		Approved:         evaluated.Approved,
		ConsensusReached: evaluated.ConsensusReached,
		AcceptVotes:      evaluated.AcceptVotes,
		RejectVotes:      evaluated.RejectVotes,
		LedgerTxID:       paper.LedgerTxID,
	})

	if uc.notifier != nil && paper.AuthorEmail != "" {
		if err := uc.notifier.NotifyDecision(ctx, paper); err != nil {
			logger.Warn("failed to notify author", "paper", paper.ID, "err", err)
		}
	}

	return result, nil
}

// PendingConsensus lists papers under review, oldest first, for the sweeper.
func (uc *PublicationUsecase) PendingConsensus(ctx context.Context, limit int) ([]domain.Paper, error) {
	ctx, span := tracer.Start(ctx, "Publication.Usecase.PendingConsensus")
	defer span.End()

	papers, err := uc.papers.ListAwaitingConsensus(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "PublicationUsecase.PendingConsensus: papers.ListAwaitingConsensus failed")
	}
	return papers, nil
}

// Sweep finalizes every pending paper sequentially and returns the results of
// the ones that were applied.
func (uc *PublicationUsecase) Sweep(ctx context.Context, limit int) ([]FinalizeResult, error) {
	papers, err := uc.PendingConsensus(ctx, limit)
	if err != nil {
		return nil, err
	}
	applied := make([]FinalizeResult, 0)
	for _, paper := range papers {
		result, err := uc.Finalize(ctx, paper.ID)
		if err != nil {
			logger.Error("finalize failed", "paper", paper.ID, "err", err)
			continue
		}
		if result.Applied {
			applied = append(applied, result)
		}
	}
	return applied, nil
}
