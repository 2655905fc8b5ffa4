package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/schemas"
)

type SubmitPaperInput struct {
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Keywords        []string `json:"keywords"`
	AuthorID        string   `json:"authorID"`
	AuthorEmail     string   `json:"authorEmail"`
	RequiredReviews int      `json:"requiredReviews"`
}

type PaperUsecase struct {
	papers      PaperRepository
	assignments AssignmentRepository
	reviews     ReviewRepository
	publisher   EventPublisher
	settings    domain.AssignmentSettings
}

func NewPaperUsecase(
	papers PaperRepository,
	assignments AssignmentRepository,
	reviews ReviewRepository,
	publisher EventPublisher,
	settings domain.AssignmentSettings,
) *PaperUsecase {
	return &PaperUsecase{
		papers:      papers,
		assignments: assignments,
		reviews:     reviews,
		publisher:   publisher,
		settings:    settings,
	}
}

func (uc *PaperUsecase) Submit(ctx context.Context, input SubmitPaperInput) (domain.Paper, error) {
	ctx, span := tracer.Start(ctx, "Paper.Usecase.Submit")
	defer span.End()

	keywords := peerreview.NormalizeTerms(input.Keywords)
	switch {
	case strings.TrimSpace(input.Title) == "":
		return domain.Paper{}, errors.Wrap(domain.ErrInvalidRequest, "title is required")
	case strings.TrimSpace(input.AuthorID) == "":
		return domain.Paper{}, errors.Wrap(domain.ErrInvalidRequest, "author is required")
	case len(keywords) == 0:
		return domain.Paper{}, errors.Wrap(domain.ErrInvalidRequest, "at least one keyword is required")
	case input.RequiredReviews < 0:
		return domain.Paper{}, errors.Wrap(domain.ErrInvalidRequest, "required reviews must be positive")
	}

	required := input.RequiredReviews
	if required == 0 {
		required = uc.settings.DefaultRequired
	}
	if required < 1 {
		return domain.Paper{}, errors.Wrap(domain.ErrInvalidRequest, "required reviews must be at least 1")
	}

	now := time.Now().UTC()
	paper := domain.Paper{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(input.Title),
		Abstract:        input.Abstract,
		Keywords:        keywords,
		AuthorID:        input.AuthorID,
		AuthorEmail:     input.AuthorEmail,
		RequiredReviews: required,
		Status:          domain.PaperStatusSubmitted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.papers.Create(ctx, paper); err != nil {
		span.RecordError(err)
		return domain.Paper{}, errors.Wrap(err, "PaperUsecase.Submit: papers.Create failed")
	}

	logger.Info("paper submitted", "paper", paper.ID, "author", paper.AuthorID, "required", paper.RequiredReviews)
	emit(ctx, uc.publisher, schemas.PaperSubmitted, paper.ID, paper.AuthorID, nil)
	return paper, nil
}

func (uc *PaperUsecase) Get(ctx context.Context, id string) (domain.Paper, error) {
	return uc.papers.Get(ctx, id)
}

func (uc *PaperUsecase) ListCandidates(ctx context.Context, paperID string) ([]domain.ReviewAssignmentCandidate, error) {
	if _, err := uc.papers.Get(ctx, paperID); err != nil {
		return nil, err
	}
	return uc.assignments.ListCandidates(ctx, paperID)
}

func (uc *PaperUsecase) ListReviews(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	if _, err := uc.papers.Get(ctx, paperID); err != nil {
		return nil, err
	}
	return uc.reviews.ListByPaper(ctx, paperID)
}

// MarkSubmissionFailed records an upstream (ledger or content store) failure
// for a paper that has not entered review yet.
func (uc *PaperUsecase) MarkSubmissionFailed(ctx context.Context, id, reason string) error {
	ctx, span := tracer.Start(ctx, "Paper.Usecase.MarkSubmissionFailed")
	defer span.End()

	paper, err := uc.papers.Get(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanTransition(paper.Status, domain.PaperStatusSubmissionFailed) {
		return domain.InvalidTransitionError{From: paper.Status, To: domain.PaperStatusSubmissionFailed}
	}

	err = uc.papers.TransitionStatus(ctx, id, domain.PaperStatusSubmitted, domain.PaperStatusSubmissionFailed, reason)
	if errors.Is(err, domain.ErrConsensusRace) {
		return domain.InvalidTransitionError{From: domain.PaperStatusUnderReview, To: domain.PaperStatusSubmissionFailed}
	}
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "PaperUsecase.MarkSubmissionFailed: papers.TransitionStatus failed")
	}

	logger.Warn("paper submission failed", "paper", id, "reason", reason)
	emit(ctx, uc.publisher, schemas.PaperFailed, id, "", map[string]string{"reason": reason})
	return nil
}

// AssignmentRequestFor builds the assignment request of a stored paper.
func AssignmentRequestFor(paper domain.Paper) AssignmentRequest {
	return AssignmentRequest{
		PaperID:         paper.ID,
		Title:           paper.Title,
		Abstract:        paper.Abstract,
		Keywords:        paper.Keywords,
		AuthorID:        paper.AuthorID,
		RequiredReviews: paper.RequiredReviews,
	}
}
