package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/infra/database/models"
)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// UpsertCandidates writes the audit rows of a pass. Rows are keyed by
// (paper, reviewer account, pass) so replaying a pass overwrites it.
func (r *AssignmentRepository) UpsertCandidates(ctx context.Context, candidates []domain.ReviewAssignmentCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	rows := make([]models.AssignmentCandidate, len(candidates))
	for i, c := range candidates {
		rows[i] = candidateFromDomain(c)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "paper_id"}, {Name: "reviewer_account"}, {Name: "pass_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"reviewer_id", "expertise", "reputation", "staking", "availability",
			"total", "matched_tags", "eligible", "priority",
		}),
	}).Create(&rows).Error
}

func (r *AssignmentRepository) MarkAssigned(ctx context.Context, paperID, passID string, accounts []string) error {
	if len(accounts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AssignmentCandidate{}).
		Where("paper_id = ? AND pass_id = ? AND reviewer_account IN ?", paperID, passID, accounts).
		Updates(map[string]any{
			"assigned":    true,
			"assigned_at": time.Now().UTC(),
		}).Error
}

// ListCandidates returns the audit trail, newest pass first and by priority
// within a pass.
func (r *AssignmentRepository) ListCandidates(ctx context.Context, paperID string) ([]domain.ReviewAssignmentCandidate, error) {
	var rows []models.AssignmentCandidate
	err := r.db.WithContext(ctx).
		Where("paper_id = ?", paperID).
		Order("created_at DESC").
		Order("CASE WHEN priority = 0 THEN 1 ELSE 0 END").
		Order("priority ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	candidates := make([]domain.ReviewAssignmentCandidate, len(rows))
	for i, row := range rows {
		candidates[i] = candidateToDomain(row)
	}
	return candidates, nil
}

func candidateFromDomain(c domain.ReviewAssignmentCandidate) models.AssignmentCandidate {
	return models.AssignmentCandidate{
		PaperID:         c.PaperID,
		ReviewerAccount: c.Account,
		PassID:          c.PassID,
		ReviewerID:      c.ReviewerID,
		Expertise:       c.Scores.Expertise,
		Reputation:      c.Scores.Reputation,
		Staking:         c.Scores.Staking,
		Availability:    c.Scores.Availability,
		Total:           c.Total,
		MatchedTags:     c.MatchedTags,
		Eligible:        c.Eligible,
		Priority:        c.Priority,
		Assigned:        c.Assigned,
		AssignedAt:      c.AssignedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func candidateToDomain(row models.AssignmentCandidate) domain.ReviewAssignmentCandidate {
	matched := []string(row.MatchedTags)
	if matched == nil {
		matched = []string{}
	}
	return domain.ReviewAssignmentCandidate{
		PaperID:    row.PaperID,
		PassID:     row.PassID,
		ReviewerID: row.ReviewerID,
		Account:    row.ReviewerAccount,
		Scores: domain.SubScores{
			Expertise:    row.Expertise,
			Reputation:   row.Reputation,
			Staking:      row.Staking,
			Availability: row.Availability,
		},
		Total:       row.Total,
		MatchedTags: matched,
		Eligible:    row.Eligible,
		Priority:    row.Priority,
		Assigned:    row.Assigned,
		AssignedAt:  row.AssignedAt,
		CreatedAt:   row.CreatedAt,
	}
}
