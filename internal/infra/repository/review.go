package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/infra/database/models"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a claimed review while the paper holds fewer than limit
// reviews. The paper row is locked for the count so concurrent claims cannot
// overshoot.
func (r *ReviewRepository) Create(ctx context.Context, review domain.ReviewRecord, limit int) error {
	row := reviewFromDomain(review)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paper models.Paper
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", review.PaperID).
			Take(&paper).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "paper"}
		}
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Review{}).Where("paper_id = ?", review.PaperID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(limit) {
			return domain.ErrClaimsFull
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyClaimed
	}
	return err
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (domain.ReviewRecord, error) {
	var row models.Review
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ReviewRecord{}, domain.NotFoundError{Resource: "review"}
	}
	if err != nil {
		return domain.ReviewRecord{}, err
	}
	return reviewToDomain(row)
}

func (r *ReviewRepository) ListByPaper(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return r.list(r.db.WithContext(ctx).Where("paper_id = ?", paperID))
}

func (r *ReviewRepository) ListSubmitted(ctx context.Context, paperID string) ([]domain.ReviewRecord, error) {
	return r.list(r.db.WithContext(ctx).Where("paper_id = ? AND status = ?", paperID, domain.ReviewStatusSubmitted.String()))
}

// RecordVerdict moves a claimed review to submitted. A review that is no
// longer claimed yields domain.ErrNotClaimed.
func (r *ReviewRepository) RecordVerdict(ctx context.Context, id string, verdict domain.Verdict) error {
	result := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ? AND status = ?", id, domain.ReviewStatusClaimed.String()).
		Updates(map[string]any{
			"verdict":      int(verdict),
			"status":       domain.ReviewStatusSubmitted.String(),
			"submitted_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotClaimed
	}
	return nil
}

func (r *ReviewRepository) list(query *gorm.DB) ([]domain.ReviewRecord, error) {
	var rows []models.Review
	if err := query.Order("claimed_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	reviews := make([]domain.ReviewRecord, 0, len(rows))
	for _, row := range rows {
		review, err := reviewToDomain(row)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func reviewFromDomain(review domain.ReviewRecord) models.Review {
	return models.Review{
		ID:              review.ID,
		PaperID:         review.PaperID,
		ReviewerID:      review.ReviewerID,
		ReviewerAccount: review.ReviewerAccount,
		StakeAmount:     review.StakeAmount,
		Verdict:         int(review.Verdict),
		Status:          review.Status.String(),
		Aligned:         review.Aligned,
		RewardAmount:    review.RewardAmount,
		SlashedAmount:   review.SlashedAmount,
		ClaimedAt:       review.ClaimedAt,
		SubmittedAt:     review.SubmittedAt,
		SettledAt:       review.SettledAt,
	}
}

func reviewToDomain(row models.Review) (domain.ReviewRecord, error) {
	status, err := domain.ParseReviewStatus(row.Status)
	if err != nil {
		return domain.ReviewRecord{}, errors.Wrapf(err, "review %s", row.ID)
	}
	return domain.ReviewRecord{
		ID:              row.ID,
		PaperID:         row.PaperID,
		ReviewerID:      row.ReviewerID,
		ReviewerAccount: row.ReviewerAccount,
		StakeAmount:     row.StakeAmount,
		Verdict:         domain.Verdict(row.Verdict),
		Status:          status,
		Aligned:         row.Aligned,
		RewardAmount:    row.RewardAmount,
		SlashedAmount:   row.SlashedAmount,
		ClaimedAt:       row.ClaimedAt,
		SubmittedAt:     row.SubmittedAt,
		SettledAt:       row.SettledAt,
	}, nil
}
