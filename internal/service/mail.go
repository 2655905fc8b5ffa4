package service

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/totegamma/peerreview/internal/domain"
)

type MailConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string
	SkipTLSVerify bool
}

type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// MailNotifier e-mails authors when their paper is decided.
type MailNotifier struct {
	sender sender
	from   string
}

func NewMailNotifier(conf MailConfig) *MailNotifier {
	port := conf.Port
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(conf.Host, port, conf.User, conf.Pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         conf.Host,
		InsecureSkipVerify: conf.SkipTLSVerify,
	}
	return &MailNotifier{sender: d, from: conf.From}
}

func (n *MailNotifier) NotifyDecision(ctx context.Context, paper domain.Paper) error {
	if paper.AuthorEmail == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sender.DialAndSend(n.decisionMessage(paper)); err != nil {
		return err
	}
	logger.Info("decision mailed", "paper", paper.ID, "status", paper.Status)
	return nil
}

func (n *MailNotifier) decisionMessage(paper domain.Paper) *mail.Message {
	decision := "rejected"
	if paper.Status == domain.PaperStatusPublished {
		decision = "accepted for publication"
	}

	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", paper.AuthorEmail)
	m.SetHeader("Subject", fmt.Sprintf("Review decision: %s", paper.Title))
	body := fmt.Sprintf(
		"<p>Your paper <b>%s</b> has been %s.</p><p>Consensus reached: %t</p>",
		paper.Title, decision, paper.Consensus.Reached,
	)
	if paper.LedgerTxID != "" {
		body += fmt.Sprintf("<p>Ledger transaction: %s</p>", paper.LedgerTxID)
	}
	m.SetBody("text/html", body)
	return m
}
