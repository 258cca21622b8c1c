package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"encorecrm/config"
	"encorecrm/models"
)

// ReplyWorker polls the outreach inbox over IMAP and flips
// reply_detected when a lead writes back. A detected reply
// permanently removes the lead from automated follow-up and parks it
// for a human.
type ReplyWorker struct {
	DB     *gorm.DB
	IMAP   config.IMAPConfig
	Logger *log.Logger
}

func NewReplyWorker(db *gorm.DB, imapCfg config.IMAPConfig, logger *log.Logger) *ReplyWorker {
	return &ReplyWorker{
		DB:     db,
		IMAP:   imapCfg,
		Logger: logger,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	if rw.IMAP.Host == "" {
		rw.Logger.Println("IMAP not configured, reply detection disabled")
		return
	}

	rw.Logger.Println("Reply worker started")

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Reply worker shutting down...")
			return
		case <-ticker.C:
			if err := rw.checkInbox(); err != nil {
				rw.Logger.Printf("Reply check failed: %v", err)
			}
		}
	}
}

// checkInbox fetches unseen messages and records any that come from a
// known lead.
func (rw *ReplyWorker) checkInbox() error {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", rw.IMAP.Host, rw.IMAP.Port), nil)
	if err != nil {
		return fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := c.Login(rw.IMAP.Username, rw.IMAP.Password); err != nil {
		return fmt.Errorf("imap login: %w", err)
	}

	if _, err := c.Select(rw.IMAP.Mailbox, false); err != nil {
		return fmt.Errorf("imap select %s: %w", rw.IMAP.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return fmt.Errorf("imap search: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	for msg := range messages {
		if err := rw.handleMessage(msg, section); err != nil {
			rw.Logger.Printf("Failed to process reply: %v", err)
		}
	}

	return <-done
}

func (rw *ReplyWorker) handleMessage(msg *imap.Message, section *imap.BodySectionName) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return nil
	}
	from := strings.ToLower(msg.Envelope.From[0].Address())

	var lead models.Lead
	if err := rw.DB.Where("director_email = ?", from).First(&lead).Error; err != nil {
		// Not one of ours
		return nil
	}
	if lead.ReplyDetected {
		return nil
	}

	body := rw.extractText(msg, section)
	now := time.Now()
	if !msg.Envelope.Date.IsZero() {
		now = msg.Envelope.Date
	}

	return rw.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"reply_detected": true}
		// Terminal and invoicing statuses are authoritative; only
		// leads still inside the outreach funnel move to the
		// awaiting-action state.
		if !models.IsTerminalStatus(lead.Status) && lead.Status != models.StatusInvoiceSent {
			updates["status"] = models.StatusReplyReceived
		}
		if err := tx.Model(&lead).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Create(&models.CommunicationHistory{
			LeadID:    lead.ID,
			Channel:   models.ChannelEmail,
			Direction: models.DirectionInbound,
			Subject:   msg.Envelope.Subject,
			Content:   body,
			SentAt:    now,
			Metadata:  `{"source":"imap"}`,
		}).Error
	})
}

// extractText pulls the first text part out of the raw message body.
func (rw *ReplyWorker) extractText(msg *imap.Message, section *imap.BodySectionName) string {
	r := msg.GetBody(section)
	if r == nil {
		return ""
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return ""
		}
		if _, ok := part.Header.(*mail.InlineHeader); ok {
			text, err := io.ReadAll(io.LimitReader(part.Body, 64*1024))
			if err != nil {
				return ""
			}
			return string(text)
		}
	}
}
