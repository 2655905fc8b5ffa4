package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/infra/database/models"
)

type PaperRepository struct {
	db *gorm.DB
}

func NewPaperRepository(db *gorm.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

func (r *PaperRepository) Create(ctx context.Context, paper domain.Paper) error {
	row := paperFromDomain(paper)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *PaperRepository) Get(ctx context.Context, id string) (domain.Paper, error) {
	var row models.Paper
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Paper{}, domain.NotFoundError{Resource: "paper"}
	}
	if err != nil {
		return domain.Paper{}, err
	}
	return paperToDomain(row)
}

// TransitionStatus updates the status only while the row is still in from.
func (r *PaperRepository) TransitionStatus(ctx context.Context, id string, from, to domain.PaperStatus, reason string) error {
	if !domain.CanTransition(from, to) {
		return domain.InvalidTransitionError{From: from, To: to}
	}

	updates := map[string]any{
		"status":     to.String(),
		"updated_at": time.Now().UTC(),
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}

	result := r.db.WithContext(ctx).
		Model(&models.Paper{}).
		Where("id = ? AND status = ?", id, from.String()).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missOrRace(ctx, id)
	}
	return nil
}

func (r *PaperRepository) SetLedgerTx(ctx context.Context, id, txID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Paper{}).
		Where("id = ?", id).
		Update("ledger_tx_id", txID).Error
}

func (r *PaperRepository) ListAwaitingConsensus(ctx context.Context, limit int) ([]domain.Paper, error) {
	var rows []models.Paper
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.PaperStatusUnderReview.String()).
		Where("required_reviews <= (SELECT COUNT(*) FROM reviews WHERE reviews.paper_id = papers.id AND reviews.status = ?)", domain.ReviewStatusSubmitted.String()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	papers := make([]domain.Paper, 0, len(rows))
	for _, row := range rows {
		paper, err := paperToDomain(row)
		if err != nil {
			return nil, err
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// ApplyConsensus moves an UnderReview paper to its terminal status and
// settles every review in one transaction.
func (r *PaperRepository) ApplyConsensus(ctx context.Context, paperID string, to domain.PaperStatus, fields domain.ConsensusFields, outcomes []domain.ReviewOutcome) error {
	if !domain.CanTransition(domain.PaperStatusUnderReview, to) {
		return domain.InvalidTransitionError{From: domain.PaperStatusUnderReview, To: to}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&models.Paper{}).
			Where("id = ? AND status = ?", paperID, domain.PaperStatusUnderReview.String()).
			Updates(map[string]any{
				"status":               to.String(),
				"consensus_reached":    fields.Reached,
				"consensus_verdict":    fields.Verdict,
				"consensus_reached_at": fields.ReachedAt,
				"published_at":         fields.PublishedAt,
				"updated_at":           now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrConsensusRace
		}

		for _, outcome := range outcomes {
			err := tx.Model(&models.Review{}).
				Where("id = ? AND paper_id = ?", outcome.ReviewID, paperID).
				Updates(map[string]any{
					"aligned":        outcome.Aligned,
					"reward_amount":  outcome.Reward,
					"slashed_amount": outcome.Slash,
					"settled_at":     now,
				}).Error
			if err != nil {
				return errors.Wrapf(err, "settle review %s", outcome.ReviewID)
			}
		}
		return nil
	})
}

func (r *PaperRepository) missOrRace(ctx context.Context, id string) error {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Paper{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.NotFoundError{Resource: "paper"}
	}
	return domain.ErrConsensusRace
}

func paperFromDomain(paper domain.Paper) models.Paper {
	return models.Paper{
		ID:                 paper.ID,
		Title:              paper.Title,
		Abstract:           paper.Abstract,
		Keywords:           paper.Keywords,
		AuthorID:           paper.AuthorID,
		AuthorEmail:        paper.AuthorEmail,
		RequiredReviews:    paper.RequiredReviews,
		Status:             paper.Status.String(),
		ConsensusReached:   paper.Consensus.Reached,
		ConsensusVerdict:   paper.Consensus.Verdict,
		ConsensusReachedAt: paper.Consensus.ReachedAt,
		PublishedAt:        paper.Consensus.PublishedAt,
		LedgerTxID:         paper.LedgerTxID,
		FailureReason:      paper.FailureReason,
		CreatedAt:          paper.CreatedAt,
		UpdatedAt:          paper.UpdatedAt,
	}
}

func paperToDomain(row models.Paper) (domain.Paper, error) {
	status, err := domain.ParsePaperStatus(row.Status)
	if err != nil {
		return domain.Paper{}, errors.Wrapf(err, "paper %s", row.ID)
	}
	keywords := []string(row.Keywords)
	if keywords == nil {
		keywords = []string{}
	}
	return domain.Paper{
		ID:              row.ID,
		Title:           row.Title,
		Abstract:        row.Abstract,
		Keywords:        keywords,
		AuthorID:        row.AuthorID,
		AuthorEmail:     row.AuthorEmail,
		RequiredReviews: row.RequiredReviews,
		Status:          status,
		Consensus: domain.ConsensusFields{
			Reached:     row.ConsensusReached,
			Verdict:     row.ConsensusVerdict,
			ReachedAt:   row.ConsensusReachedAt,
			PublishedAt: row.PublishedAt,
		},
		LedgerTxID:    row.LedgerTxID,
		FailureReason: row.FailureReason,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
