package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/totegamma/peerreview/client"
)

// OutcomeRequest is the body posted to the ledger service.
type OutcomeRequest struct {
	PaperID  string `json:"paperId"`
	Approved bool   `json:"approved"`
	Digest   string `json:"digest"`
}

type outcomeResponse struct {
	TxID string `json:"txId"`
}

// LedgerGateway records final verdicts on the external ledger. Receipts are
// cached by outcome digest so a retried finalize does not record twice.
type LedgerGateway struct {
	client   *client.Client
	receipts *cache.Cache
}

func NewLedgerGateway(cl *client.Client) *LedgerGateway {
	return &LedgerGateway{
		client:   cl,
		receipts: cache.New(24*time.Hour, time.Hour),
	}
}

func (g *LedgerGateway) RecordOutcome(ctx context.Context, paperID string, approved bool) (string, error) {
	digest := OutcomeDigest(paperID, approved)
	key := digest.Hex()
	if cached, found := g.receipts.Get(key); found {
		return cached.(string), nil
	}

	var resp outcomeResponse
	err := g.client.PostJSON(ctx, "/outcomes", OutcomeRequest{
		PaperID:  paperID,
		Approved: approved,
		Digest:   key,
	}, &resp)
	if err != nil {
		return "", errors.Wrapf(err, "record outcome of %s", paperID)
	}
	if resp.TxID == "" {
		return "", errors.Errorf("ledger returned no transaction for %s", paperID)
	}

	g.receipts.SetDefault(key, resp.TxID)
	return resp.TxID, nil
}

// OutcomeDigest is keccak256("<paperID>:<approved>").
func OutcomeDigest(paperID string, approved bool) common.Hash {
	return crypto.Keccak256Hash([]byte(paperID + ":" + strconv.FormatBool(approved)))
}
