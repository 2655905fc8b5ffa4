package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/totegamma/peerreview"
	"github.com/totegamma/peerreview/internal/domain"
)

type ReviewerUsecase struct {
	registry ReviewerRegistry
}

func NewReviewerUsecase(registry ReviewerRegistry) *ReviewerUsecase {
	return &ReviewerUsecase{registry: registry}
}

func (uc *ReviewerUsecase) Register(ctx context.Context, profile domain.ReviewerProfile) (domain.ReviewerProfile, error) {
	ctx, span := tracer.Start(ctx, "Reviewer.Usecase.Register")
	defer span.End()

	profile.ID = strings.TrimSpace(profile.ID)
	if profile.ID == "" {
		return domain.ReviewerProfile{}, errors.Wrap(domain.ErrInvalidRequest, "reviewer id is required")
	}
	if !common.IsHexAddress(profile.StakingAccount) {
		return domain.ReviewerProfile{}, errors.Wrapf(domain.ErrInvalidRequest, "staking account %q is not an address", profile.StakingAccount)
	}
	if profile.Reputation < 0 {
		return domain.ReviewerProfile{}, errors.Wrap(domain.ErrInvalidRequest, "reputation must not be negative")
	}
	profile.StakingAccount = common.HexToAddress(profile.StakingAccount).Hex()
	profile.ExpertiseTags = peerreview.NormalizeTerms(profile.ExpertiseTags)
	profile.UpdatedAt = time.Now().UTC()

	if err := uc.registry.UpsertReviewer(ctx, profile); err != nil {
		span.RecordError(err)
		return domain.ReviewerProfile{}, errors.Wrap(err, "ReviewerUsecase.Register: registry.UpsertReviewer failed")
	}
	logger.Info("reviewer registered", "reviewer", profile.ID, "account", profile.StakingAccount, "tags", len(profile.ExpertiseTags))
	return profile, nil
}

func (uc *ReviewerUsecase) SyncWallet(ctx context.Context, wallet domain.WalletSnapshot) (domain.WalletSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Reviewer.Usecase.SyncWallet")
	defer span.End()

	if !common.IsHexAddress(wallet.Account) {
		return domain.WalletSnapshot{}, errors.Wrapf(domain.ErrInvalidRequest, "account %q is not an address", wallet.Account)
	}
	if wallet.AvailableBalance.IsNegative() || wallet.StakedAmount.IsNegative() {
		return domain.WalletSnapshot{}, errors.Wrap(domain.ErrInvalidRequest, "balances must not be negative")
	}
	wallet.Account = common.HexToAddress(wallet.Account).Hex()
	wallet.SyncedAt = time.Now().UTC()

	if err := uc.registry.UpsertWallet(ctx, wallet); err != nil {
		span.RecordError(err)
		return domain.WalletSnapshot{}, errors.Wrap(err, "ReviewerUsecase.SyncWallet: registry.UpsertWallet failed")
	}
	return wallet, nil
}
