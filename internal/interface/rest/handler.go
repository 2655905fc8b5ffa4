package rest

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/interface/rest/middleware"
	"github.com/totegamma/peerreview/internal/interface/rest/presenter"
	"github.com/totegamma/peerreview/internal/usecase"
	"github.com/totegamma/peerreview/internal/utils"
)

type Handler struct {
	papers     *usecase.PaperUsecase
	assignment *usecase.AssignmentUsecase
	reviews    *usecase.ReviewUsecase
	reviewers  *usecase.ReviewerUsecase
	events     EventSubscriber
}

func NewHandler(
	papers *usecase.PaperUsecase,
	assignment *usecase.AssignmentUsecase,
	reviews *usecase.ReviewUsecase,
	reviewers *usecase.ReviewerUsecase,
	events EventSubscriber,
) *Handler {
	return &Handler{
		papers:     papers,
		assignment: assignment,
		reviews:    reviews,
		reviewers:  reviewers,
		events:     events,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)

	api := e.Group("/api/v1")
	api.POST("/papers", h.handleSubmitPaper)
	api.GET("/papers/:id", h.handleGetPaper)
	api.POST("/papers/:id/assignments", h.handleAssign)
	api.GET("/papers/:id/candidates", h.handleCandidates)
	api.GET("/papers/:id/reviews", h.handleReviews)
	api.POST("/papers/:id/claims", h.handleClaim)
	api.POST("/papers/:id/failure", h.handleFailure)
	api.POST("/reviews/:id/submit", h.handleSubmitReview)
	api.PUT("/reviewers/:id", h.handleRegisterReviewer)
	api.PUT("/wallets/:account", h.handleSyncWallet)
	if h.events != nil {
		api.GET("/events", h.handleEvents)
	}
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// assignOptions are the per-request knobs of an assignment pass.
type assignOptions struct {
	RequiredReviews   int              `json:"requiredReviews"`
	MinimumReputation *float64         `json:"minimumReputation"`
	MinimumStake      *decimal.Decimal `json:"minimumStake"`
	ExcludedAccounts  []string         `json:"excludedAccounts"`
}

func (o assignOptions) apply(req usecase.AssignmentRequest) usecase.AssignmentRequest {
	if o.RequiredReviews > 0 {
		req.RequiredReviews = o.RequiredReviews
	}
	req.MinimumReputation = o.MinimumReputation
	req.MinimumStake = o.MinimumStake
	req.ExcludedAccounts = o.ExcludedAccounts
	return req
}

type submitPaperRequest struct {
	Title             string           `json:"title"`
	Abstract          string           `json:"abstract"`
	Keywords          []string         `json:"keywords"`
	AuthorID          string           `json:"authorID"`
	AuthorEmail       string           `json:"authorEmail"`
	RequiredReviews   int              `json:"requiredReviews"`
	MinimumReputation *float64         `json:"minimumReputation"`
	MinimumStake      *decimal.Decimal `json:"minimumStake"`
	ExcludedAccounts  []string         `json:"excludedAccounts"`
}

type submitPaperResponse struct {
	Paper      domain.Paper             `json:"paper"`
	Assignment usecase.AssignmentResult `json:"assignment"`
}

func (h *Handler) handleSubmitPaper(c echo.Context) error {
	ctx := c.Request().Context()

	var req submitPaperRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.AuthorID == "" {
		req.AuthorID = middleware.Requester(ctx)
	}

	paper, err := h.papers.Submit(ctx, usecase.SubmitPaperInput{
		Title:           req.Title,
		Abstract:        req.Abstract,
		Keywords:        req.Keywords,
		AuthorID:        req.AuthorID,
		AuthorEmail:     req.AuthorEmail,
		RequiredReviews: req.RequiredReviews,
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	opts := assignOptions{
		MinimumReputation: req.MinimumReputation,
		MinimumStake:      req.MinimumStake,
		ExcludedAccounts:  req.ExcludedAccounts,
	}
	// A failed pass is reported in the body and can be re-run through
	// /assignments.
	result, _ := h.assignment.AssignReviewers(ctx, opts.apply(usecase.AssignmentRequestFor(paper)))
	return presenter.Created(c, submitPaperResponse{Paper: paper, Assignment: result})
}

func (h *Handler) handleGetPaper(c echo.Context) error {
	paper, err := h.papers.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, paper)
}

func (h *Handler) handleAssign(c echo.Context) error {
	ctx := c.Request().Context()

	var opts assignOptions
	if err := c.Bind(&opts); err != nil {
		return presenter.BadRequest(c, err)
	}

	paper, err := h.papers.Get(ctx, c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}

	result, err := h.assignment.AssignReviewers(ctx, opts.apply(usecase.AssignmentRequestFor(paper)))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, result)
}

type candidateView struct {
	PassID      string                      `json:"passID"`
	ReviewerID  string                      `json:"reviewerID"`
	Account     string                      `json:"account"`
	Scores      utils.OrderedKVMap[float64] `json:"scores"`
	MatchedTags []string                    `json:"matchedTags"`
	Eligible    bool                        `json:"eligible"`
	Priority    int                         `json:"priority"`
	Assigned    bool                        `json:"assigned"`
	AssignedAt  *time.Time                  `json:"assignedAt,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

func scoreBreakdown(c domain.ReviewAssignmentCandidate) utils.OrderedKVMap[float64] {
	scores := utils.OrderedKVMap[float64]{}
	scores.Put("total", c.Total)
	scores.Put("expertise", c.Scores.Expertise)
	scores.Put("reputation", c.Scores.Reputation)
	scores.Put("staking", c.Scores.Staking)
	scores.Put("availability", c.Scores.Availability)
	return scores
}

func (h *Handler) handleCandidates(c echo.Context) error {
	candidates, err := h.papers.ListCandidates(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}

	views := make([]candidateView, len(candidates))
	for i, candidate := range candidates {
		views[i] = candidateView{
			PassID:      candidate.PassID,
			ReviewerID:  candidate.ReviewerID,
			Account:     candidate.Account,
			Scores:      scoreBreakdown(candidate),
			MatchedTags: candidate.MatchedTags,
			Eligible:    candidate.Eligible,
			Priority:    candidate.Priority,
			Assigned:    candidate.Assigned,
			AssignedAt:  candidate.AssignedAt,
			CreatedAt:   candidate.CreatedAt,
		}
	}
	return presenter.OK(c, views)
}

func (h *Handler) handleReviews(c echo.Context) error {
	reviews, err := h.papers.ListReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, reviews)
}

type claimRequest struct {
	ReviewerAccount string          `json:"reviewerAccount"`
	StakeAmount     decimal.Decimal `json:"stakeAmount"`
}

func (h *Handler) handleClaim(c echo.Context) error {
	ctx := c.Request().Context()

	requester := middleware.Requester(ctx)
	if requester == "" {
		return presenter.BadRequestMessage(c, "missing "+domain.RequesterIdHeader+" header")
	}

	var req claimRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	review, err := h.reviews.Claim(ctx, usecase.ClaimInput{
		PaperID:         c.Param("id"),
		ReviewerID:      requester,
		ReviewerAccount: req.ReviewerAccount,
		StakeAmount:     req.StakeAmount,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, review)
}

type submitReviewRequest struct {
	Verdict domain.Verdict `json:"verdict"`
}

func (h *Handler) handleSubmitReview(c echo.Context) error {
	ctx := c.Request().Context()

	requester := middleware.Requester(ctx)
	if requester == "" {
		return presenter.BadRequestMessage(c, "missing "+domain.RequesterIdHeader+" header")
	}

	var req submitReviewRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.reviews.Submit(ctx, usecase.SubmitReviewInput{
		ReviewID:   c.Param("id"),
		ReviewerID: requester,
		Verdict:    req.Verdict,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, result)
}

type failureRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleFailure(c echo.Context) error {
	var req failureRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Reason == "" {
		return presenter.BadRequestMessage(c, "reason is required")
	}

	if err := h.papers.MarkSubmissionFailed(c.Request().Context(), c.Param("id"), req.Reason); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleRegisterReviewer(c echo.Context) error {
	var profile domain.ReviewerProfile
	if err := c.Bind(&profile); err != nil {
		return presenter.BadRequest(c, err)
	}
	profile.ID = c.Param("id")

	registered, err := h.reviewers.Register(c.Request().Context(), profile)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, registered)
}

func (h *Handler) handleSyncWallet(c echo.Context) error {
	var wallet domain.WalletSnapshot
	if err := c.Bind(&wallet); err != nil {
		return presenter.BadRequest(c, err)
	}
	wallet.Account = c.Param("account")

	synced, err := h.reviewers.SyncWallet(c.Request().Context(), wallet)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, synced)
}
