package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/scoring"
	"github.com/totegamma/peerreview/schemas"
)

var tracer = otel.Tracer("usecase")

// AssignmentRequest describes the paper to staff with reviewers.
type AssignmentRequest struct {
	PaperID           string           `json:"paperID"`
	Title             string           `json:"title"`
	Abstract          string           `json:"abstract"`
	Keywords          []string         `json:"keywords"`
	AuthorID          string           `json:"authorID"`
	RequiredReviews   int              `json:"requiredReviews"`
	MinimumReputation *float64         `json:"minimumReputation,omitempty"`
	MinimumStake      *decimal.Decimal `json:"minimumStake,omitempty"`
	ExcludedAccounts  []string         `json:"excludedAccounts,omitempty"`
}

// AssignmentResult is returned for every pass, successful or not.
type AssignmentResult struct {
	Success           bool                   `json:"success"`
	Reason            string                 `json:"reason,omitempty"`
	PassID            string                 `json:"passID,omitempty"`
	AssignedReviewers []domain.ReviewerScore `json:"assignedReviewers"`
	EligibleReviewers []domain.ReviewerScore `json:"eligibleReviewers"`
	Timestamp         time.Time              `json:"timestamp"`
}

type AssignmentUsecase struct {
	directory   ReviewerDirectory
	assignments AssignmentRepository
	papers      PaperRepository
	publisher   EventPublisher
	scorer      *scoring.Scorer
	settings    domain.AssignmentSettings
}

func NewAssignmentUsecase(
	directory ReviewerDirectory,
	assignments AssignmentRepository,
	papers PaperRepository,
	publisher EventPublisher,
	scorer *scoring.Scorer,
	settings domain.AssignmentSettings,
) *AssignmentUsecase {
	return &AssignmentUsecase{
		directory:   directory,
		assignments: assignments,
		papers:      papers,
		publisher:   publisher,
		scorer:      scorer,
		settings:    settings,
	}
}

// AssignReviewers runs one assignment pass. Shortfalls are reported through
// the result; only infrastructure failures are returned as errors, in which
// case the result still carries the failure reason. Candidate rows written
// before a failure are not rolled back.
func (uc *AssignmentUsecase) AssignReviewers(ctx context.Context, req AssignmentRequest) (AssignmentResult, error) {
	ctx, span := tracer.Start(ctx, "Assignment.Usecase.AssignReviewers")
	defer span.End()
	span.SetAttributes(attribute.String("PaperID", req.PaperID))

	result := AssignmentResult{
		AssignedReviewers: []domain.ReviewerScore{},
		EligibleReviewers: []domain.ReviewerScore{},
		Timestamp:         time.Now().UTC(),
	}

	if req.PaperID == "" || req.RequiredReviews < 0 {
		return uc.fail(result, errors.Wrap(domain.ErrInvalidRequest, "paper id and a non-negative review count are required"))
	}
	required := req.RequiredReviews
	if required == 0 {
		required = uc.settings.DefaultRequired
	}
	if required < 1 {
		return uc.fail(result, errors.Wrap(domain.ErrInvalidRequest, "required reviews must be at least 1"))
	}
	minimumStake := uc.settings.DefaultMinimumStake
	if req.MinimumStake != nil {
		minimumStake = *req.MinimumStake
	}

	if uc.papers != nil {
		paper, err := uc.papers.Get(ctx, req.PaperID)
		switch {
		case err == nil && paper.Status.Terminal():
			result.Reason = fmt.Sprintf("paper %s is %s", paper.ID, paper.Status)
			logger.Info("assignment refused for closed paper", "paper", paper.ID, "status", paper.Status)
			return result, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			span.RecordError(err)
			return uc.fail(result, errors.Wrap(err, "AssignmentUsecase.AssignReviewers: papers.Get failed"))
		}
	}

	profiles, wallets, counts, err := uc.fetchCandidates(ctx, req.AuthorID)
	if err != nil {
		span.RecordError(err)
		return uc.fail(result, err)
	}
	if len(profiles) == 0 {
		result.Reason = domain.ErrNoEligibleReviewers.Error()
		logger.Info("no reviewers available", "paper", req.PaperID)
		return result, nil
	}

	criteria := scoring.Criteria{
		MinimumReputation: req.MinimumReputation,
		Excluded:          make(map[string]bool, len(req.ExcludedAccounts)),
	}
	for _, account := range req.ExcludedAccounts {
		criteria.Excluded[account] = true
	}

	scored := make([]domain.ReviewerScore, 0, len(profiles))
	for _, profile := range profiles {
		var wallet *domain.WalletSnapshot
		if w, ok := wallets[profile.StakingAccount]; ok {
			wallet = &w
		}
		score := uc.scorer.Score(req.Keywords, profile, wallet, counts[profile.ID], minimumStake)
		score.Eligible = scoring.Eligible(score, criteria)
		scored = append(scored, score)
	}

	eligible := rankEligible(scored)
	selected := eligible
	if len(selected) > required {
		selected = selected[:required]
	}
	result.EligibleReviewers = eligible
	result.AssignedReviewers = selected
	result.PassID = uuid.NewString()

	if err := uc.assignments.UpsertCandidates(ctx, toCandidates(req.PaperID, result.PassID, scored, eligible, result.Timestamp)); err != nil {
		span.RecordError(err)
		return uc.fail(result, errors.Wrap(err, "AssignmentUsecase.AssignReviewers: assignments.UpsertCandidates failed"))
	}

	if len(eligible) < required {
		result.Reason = domain.InsufficientReviewersError{Found: len(eligible), Need: required}.Error()
		logger.Warn("assignment shortfall", "paper", req.PaperID, "pass", result.PassID, "eligible", len(eligible), "required", required)
		return result, nil
	}

	accounts := make([]string, len(selected))
	for i, s := range selected {
		accounts[i] = s.Account
	}
	if err := uc.assignments.MarkAssigned(ctx, req.PaperID, result.PassID, accounts); err != nil {
		span.RecordError(err)
		return uc.fail(result, errors.Wrap(err, "AssignmentUsecase.AssignReviewers: assignments.MarkAssigned failed"))
	}

	result.Success = true
	logger.Info("reviewers assigned", "paper", req.PaperID, "pass", result.PassID, "scored", len(scored), "eligible", len(eligible), "assigned", len(selected))
	emit(ctx, uc.publisher, schemas.PaperAssigned, req.PaperID, "", peerreview.AssignedPayload{PassID: result.PassID, Accounts: accounts})
	return result, nil
}

// fetchCandidates reads everything the pass needs from the directory under a
// single deadline.
func (uc *AssignmentUsecase) fetchCandidates(ctx context.Context, authorID string) (
	[]domain.ReviewerProfile,
	map[string]domain.WalletSnapshot,
	map[string]int,
	error,
) {
	timeout := uc.settings.DirectoryTimeout
	if timeout <= 0 {
		timeout = domain.DefaultAssignmentSettings().DirectoryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	listed, err := uc.directory.ListReviewers(ctx, authorID)
	if err != nil {
		return nil, nil, nil, domain.DirectoryFetchError{Op: "ListReviewers", Err: err}
	}
	profiles := make([]domain.ReviewerProfile, 0, len(listed))
	for _, p := range listed {
		if !p.IsReviewer || p.ID == authorID {
			continue
		}
		profiles = append(profiles, p)
	}
	if len(profiles) == 0 {
		return nil, nil, nil, nil
	}

	accounts := make([]string, len(profiles))
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		accounts[i] = p.StakingAccount
		ids[i] = p.ID
	}

	snapshots, err := uc.directory.GetWalletSnapshots(ctx, accounts)
	if err != nil {
		return nil, nil, nil, domain.DirectoryFetchError{Op: "GetWalletSnapshots", Err: err}
	}
	wallets := make(map[string]domain.WalletSnapshot, len(snapshots))
	for _, w := range snapshots {
		wallets[w.Account] = w
	}

	counts, err := uc.directory.GetActiveReviewCounts(ctx, ids)
	if err != nil {
		return nil, nil, nil, domain.DirectoryFetchError{Op: "GetActiveReviewCounts", Err: err}
	}
	return profiles, wallets, counts, nil
}

func (uc *AssignmentUsecase) fail(result AssignmentResult, err error) (AssignmentResult, error) {
	result.Success = false
	result.Reason = err.Error()
	logger.Error("assignment failed", "err", err)
	return result, err
}

// rankEligible keeps eligible reviewers ordered by total score, ties in
// directory order, and numbers them from 1.
func rankEligible(scored []domain.ReviewerScore) []domain.ReviewerScore {
	eligible := make([]domain.ReviewerScore, 0, len(scored))
	for _, s := range scored {
		if s.Eligible {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Total > eligible[j].Total
	})
	for i := range eligible {
		eligible[i].Rank = i + 1
	}
	return eligible
}

// toCandidates builds the audit rows for every scored reviewer; ineligible
// reviewers get priority 0.
func toCandidates(paperID, passID string, scored, eligible []domain.ReviewerScore, at time.Time) []domain.ReviewAssignmentCandidate {
	ranks := make(map[string]int, len(eligible))
	for _, s := range eligible {
		ranks[s.ReviewerID] = s.Rank
	}
	candidates := make([]domain.ReviewAssignmentCandidate, 0, len(scored))
	for _, s := range scored {
		candidates = append(candidates, domain.ReviewAssignmentCandidate{
			PaperID:     paperID,
			PassID:      passID,
			ReviewerID:  s.ReviewerID,
			Account:     s.Account,
			Scores:      s.Scores,
			Total:       s.Total,
			MatchedTags: s.MatchedTags,
			Eligible:    s.Eligible,
			Priority:    ranks[s.ReviewerID],
			CreatedAt:   at,
		})
	}
	return candidates
}
