package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/schemas"
)

type ClaimInput struct {
	PaperID         string          `json:"paperID"`
	ReviewerID      string          `json:"reviewerID"`
	ReviewerAccount string          `json:"reviewerAccount"`
	StakeAmount     decimal.Decimal `json:"stakeAmount"`
}

type SubmitReviewInput struct {
	ReviewID   string         `json:"reviewID"`
	ReviewerID string         `json:"reviewerID"`
	Verdict    domain.Verdict `json:"verdict"`
}

type SubmitReviewResult struct {
	Review    domain.ReviewRecord `json:"review"`
	Finalized *FinalizeResult     `json:"finalized,omitempty"`
}

// Finalizer runs consensus for a paper once enough reviews are in.
type Finalizer interface {
	Finalize(ctx context.Context, paperID string) (FinalizeResult, error)
}

type ReviewUsecase struct {
	papers    PaperRepository
	reviews   ReviewRepository
	finalizer Finalizer
	publisher EventPublisher
	settings  domain.AssignmentSettings
}

func NewReviewUsecase(
	papers PaperRepository,
	reviews ReviewRepository,
	finalizer Finalizer,
	publisher EventPublisher,
	settings domain.AssignmentSettings,
) *ReviewUsecase {
	return &ReviewUsecase{
		papers:    papers,
		reviews:   reviews,
		finalizer: finalizer,
		publisher: publisher,
		settings:  settings,
	}
}

// Claim stakes a reviewer on a paper. The first claim moves the paper from
// Submitted to UnderReview.
func (uc *ReviewUsecase) Claim(ctx context.Context, input ClaimInput) (domain.ReviewRecord, error) {
	ctx, span := tracer.Start(ctx, "Review.Usecase.Claim")
	defer span.End()
	span.SetAttributes(attribute.String("PaperID", input.PaperID), attribute.String("ReviewerID", input.ReviewerID))

	if input.PaperID == "" || input.ReviewerID == "" || input.ReviewerAccount == "" {
		return domain.ReviewRecord{}, errors.Wrap(domain.ErrInvalidRequest, "paper, reviewer and account are required")
	}

	paper, err := uc.papers.Get(ctx, input.PaperID)
	if err != nil {
		return domain.ReviewRecord{}, err
	}
	if paper.Status != domain.PaperStatusSubmitted && paper.Status != domain.PaperStatusUnderReview {
		return domain.ReviewRecord{}, errors.Wrapf(domain.ErrPaperClosed, "paper %s is %s", paper.ID, paper.Status)
	}
	if paper.AuthorID == input.ReviewerID {
		return domain.ReviewRecord{}, domain.ErrSelfReview
	}
	if input.StakeAmount.LessThan(uc.settings.DefaultMinimumStake) || !input.StakeAmount.IsPositive() {
		return domain.ReviewRecord{}, errors.Wrapf(domain.ErrStakeTooLow, "minimum is %s", uc.settings.DefaultMinimumStake)
	}

	existing, err := uc.reviews.ListByPaper(ctx, paper.ID)
	if err != nil {
		span.RecordError(err)
		return domain.ReviewRecord{}, errors.Wrap(err, "ReviewUsecase.Claim: reviews.ListByPaper failed")
	}
	for _, r := range existing {
		if r.ReviewerID == input.ReviewerID {
			return domain.ReviewRecord{}, domain.ErrAlreadyClaimed
		}
	}
	if len(existing) >= paper.RequiredReviews {
		return domain.ReviewRecord{}, domain.ErrClaimsFull
	}

	review := domain.ReviewRecord{
		ID:              uuid.NewString(),
		PaperID:         paper.ID,
		ReviewerID:      input.ReviewerID,
		ReviewerAccount: input.ReviewerAccount,
		StakeAmount:     input.StakeAmount,
		Status:          domain.ReviewStatusClaimed,
		RewardAmount:    decimal.Zero,
		SlashedAmount:   decimal.Zero,
		ClaimedAt:       time.Now().UTC(),
	}
	if err := uc.reviews.Create(ctx, review, paper.RequiredReviews); err != nil {
		if errors.Is(err, domain.ErrClaimsFull) || errors.Is(err, domain.ErrAlreadyClaimed) {
			return domain.ReviewRecord{}, err
		}
		span.RecordError(err)
		return domain.ReviewRecord{}, errors.Wrap(err, "ReviewUsecase.Claim: reviews.Create failed")
	}

	if paper.Status == domain.PaperStatusSubmitted {
		err := uc.papers.TransitionStatus(ctx, paper.ID, domain.PaperStatusSubmitted, domain.PaperStatusUnderReview, "")
		switch {
		case errors.Is(err, domain.ErrConsensusRace):
			logger.Debug("paper already under review", "paper", paper.ID)
		case err != nil:
			span.RecordError(err)
			return domain.ReviewRecord{}, errors.Wrap(err, "ReviewUsecase.Claim: papers.TransitionStatus failed")
		default:
			logger.Info("paper under review", "paper", paper.ID)
		}
	}

	logger.Info("review claimed", "paper", paper.ID, "review", review.ID, "reviewer", review.ReviewerID, "stake", review.StakeAmount)
	emit(ctx, uc.publisher, schemas.ReviewClaimed, paper.ID, review.ReviewerID, review)
	return review, nil
}

// Submit records a verdict and runs consensus once the paper has the
// required number of submitted reviews.
func (uc *ReviewUsecase) Submit(ctx context.Context, input SubmitReviewInput) (SubmitReviewResult, error) {
	ctx, span := tracer.Start(ctx, "Review.Usecase.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("ReviewID", input.ReviewID))

	if !input.Verdict.Valid() {
		return SubmitReviewResult{}, domain.ErrInvalidVerdict
	}

	review, err := uc.reviews.Get(ctx, input.ReviewID)
	if err != nil {
		return SubmitReviewResult{}, err
	}
	if review.ReviewerID != input.ReviewerID {
		return SubmitReviewResult{}, domain.ErrNotReviewOwner
	}
	if review.Status != domain.ReviewStatusClaimed {
		return SubmitReviewResult{}, domain.ErrNotClaimed
	}

	paper, err := uc.papers.Get(ctx, review.PaperID)
	if err != nil {
		return SubmitReviewResult{}, err
	}
	if paper.Status != domain.PaperStatusUnderReview {
		return SubmitReviewResult{}, errors.Wrapf(domain.ErrPaperClosed, "paper %s is %s", paper.ID, paper.Status)
	}

	if err := uc.reviews.RecordVerdict(ctx, review.ID, input.Verdict); err != nil {
		span.RecordError(err)
		return SubmitReviewResult{}, errors.Wrap(err, "ReviewUsecase.Submit: reviews.RecordVerdict failed")
	}
	now := time.Now().UTC()
	review.Verdict = input.Verdict
	review.Status = domain.ReviewStatusSubmitted
	review.SubmittedAt = &now

	logger.Info("review submitted", "paper", paper.ID, "review", review.ID, "verdict", review.Verdict)
	emit(ctx, uc.publisher, schemas.ReviewSubmitted, paper.ID, review.ReviewerID, review)

	result := SubmitReviewResult{Review: review}

	submitted, err := uc.reviews.ListSubmitted(ctx, paper.ID)
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "ReviewUsecase.Submit: reviews.ListSubmitted failed")
	}
	if len(submitted) < paper.RequiredReviews || uc.finalizer == nil {
		return result, nil
	}

	finalized, err := uc.finalizer.Finalize(ctx, paper.ID)
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "ReviewUsecase.Submit: finalizer.Finalize failed")
	}
	result.Finalized = &finalized
	return result, nil
}
