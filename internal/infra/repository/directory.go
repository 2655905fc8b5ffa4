package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/inconshreveable/log15"
	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/infra/database/models"
)

const (
	reviewerListKey = "reviewers"
	walletTTL       = 60 // seconds
)

var logger = log15.New("module", "repository")

// ReviewerDirectory reads reviewer profiles, wallet snapshots and active
// review counts. Profiles are cached in process; wallet snapshots in
// memcached when a client is configured.
type ReviewerDirectory struct {
	db       *gorm.DB
	mc       *memcache.Client
	profiles *cache.Cache
}

func NewReviewerDirectory(db *gorm.DB, mc *memcache.Client) *ReviewerDirectory {
	return &ReviewerDirectory{
		db:       db,
		mc:       mc,
		profiles: cache.New(30*time.Second, time.Minute),
	}
}

// ListReviewers returns flagged reviewers ordered by id, minus the author.
// Reviewers whose staking account is not an address are skipped.
func (r *ReviewerDirectory) ListReviewers(ctx context.Context, excludeAuthorID string) ([]domain.ReviewerProfile, error) {
	var all []domain.ReviewerProfile
	if cached, ok := r.profiles.Get(reviewerListKey); ok {
		all = cached.([]domain.ReviewerProfile)
	} else {
		var rows []models.Reviewer
		err := r.db.WithContext(ctx).
			Where("is_reviewer = ?", true).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, err
		}
		all = make([]domain.ReviewerProfile, 0, len(rows))
		for _, row := range rows {
			if !common.IsHexAddress(row.StakingAccount) {
				logger.Warn("skipping reviewer with invalid staking account", "reviewer", row.ID, "account", row.StakingAccount)
				continue
			}
			all = append(all, reviewerToDomain(row))
		}
		r.profiles.SetDefault(reviewerListKey, all)
	}

	profiles := make([]domain.ReviewerProfile, 0, len(all))
	for _, p := range all {
		if p.ID == excludeAuthorID {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// GetWalletSnapshots reads through memcached. Accounts without a snapshot
// are omitted.
func (r *ReviewerDirectory) GetWalletSnapshots(ctx context.Context, accounts []string) ([]domain.WalletSnapshot, error) {
	if len(accounts) == 0 {
		return []domain.WalletSnapshot{}, nil
	}

	snapshots := make([]domain.WalletSnapshot, 0, len(accounts))
	missing := accounts
	if r.mc != nil {
		keys := make([]string, len(accounts))
		for i, account := range accounts {
			keys[i] = walletKey(account)
		}
		items, err := r.mc.GetMulti(keys)
		if err != nil {
			logger.Warn("memcached read failed", "err", err)
			items = nil
		}
		missing = make([]string, 0, len(accounts))
		for i, account := range accounts {
			item, ok := items[keys[i]]
			if !ok {
				missing = append(missing, account)
				continue
			}
			var snapshot domain.WalletSnapshot
			if err := json.Unmarshal(item.Value, &snapshot); err != nil {
				missing = append(missing, account)
				continue
			}
			snapshots = append(snapshots, snapshot)
		}
	}
	if len(missing) == 0 {
		return snapshots, nil
	}

	var rows []models.Wallet
	if err := r.db.WithContext(ctx).Where("account IN ?", missing).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		snapshot := walletToDomain(row)
		snapshots = append(snapshots, snapshot)
		r.cacheWallet(snapshot)
	}
	return snapshots, nil
}

func (r *ReviewerDirectory) GetActiveReviewCounts(ctx context.Context, reviewerIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(reviewerIDs))
	if len(reviewerIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ReviewerID string
		Active     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("reviewer_id, COUNT(*) AS active").
		Where("reviewer_id IN ? AND status = ?", reviewerIDs, domain.ReviewStatusClaimed.String()).
		Group("reviewer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ReviewerID] = row.Active
	}
	return counts, nil
}

func (r *ReviewerDirectory) UpsertReviewer(ctx context.Context, profile domain.ReviewerProfile) error {
	row := models.Reviewer{
		ID:             profile.ID,
		ExpertiseTags:  profile.ExpertiseTags,
		Reputation:     profile.Reputation,
		IsReviewer:     profile.IsReviewer,
		StakingAccount: profile.StakingAccount,
		UpdatedAt:      profile.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expertise_tags", "reputation", "is_reviewer", "staking_account", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	r.profiles.Delete(reviewerListKey)
	return nil
}

func (r *ReviewerDirectory) UpsertWallet(ctx context.Context, wallet domain.WalletSnapshot) error {
	row := models.Wallet{
		Account:          wallet.Account,
		AvailableBalance: wallet.AvailableBalance,
		StakedAmount:     wallet.StakedAmount,
		SyncedAt:         wallet.SyncedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_balance", "staked_amount", "synced_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	if r.mc != nil {
		if err := r.mc.Delete(walletKey(wallet.Account)); err != nil && err != memcache.ErrCacheMiss {
			logger.Warn("failed to evict wallet", "account", wallet.Account, "err", err)
		}
	}
	return nil
}

func (r *ReviewerDirectory) cacheWallet(snapshot domain.WalletSnapshot) {
	if r.mc == nil {
		return
	}
	value, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	err = r.mc.Set(&memcache.Item{Key: walletKey(snapshot.Account), Value: value, Expiration: walletTTL})
	if err != nil {
		logger.Warn("memcached write failed", "account", snapshot.Account, "err", err)
	}
}

// walletKey hashes the account so keys stay within memcached's charset and
// length limits.
func walletKey(account string) string {
	return "wallet:" + strconv.FormatUint(xxh3.HashString(account), 16)
}

func reviewerToDomain(row models.Reviewer) domain.ReviewerProfile {
	tags := []string(row.ExpertiseTags)
	if tags == nil {
		tags = []string{}
	}
	return domain.ReviewerProfile{
		ID:             row.ID,
		ExpertiseTags:  tags,
		Reputation:     row.Reputation,
		IsReviewer:     row.IsReviewer,
		StakingAccount: row.StakingAccount,
		UpdatedAt:      row.UpdatedAt,
	}
}

func walletToDomain(row models.Wallet) domain.WalletSnapshot {
	return domain.WalletSnapshot{
		Account:          row.Account,
		AvailableBalance: row.AvailableBalance,
		StakedAmount:     row.StakedAmount,
		SyncedAt:         row.SyncedAt,
	}
}
