package worker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"echonotes/config"
	"echonotes/models"
)

// ResponseWorker polls the configured IMAP inbox for unseen messages and
// stores replies that come from addresses we have actually mailed.
type ResponseWorker struct {
	db     *gorm.DB
	cfg    config.IMAPConfig
	logger *log.Logger
}

func NewResponseWorker(db *gorm.DB, cfg config.IMAPConfig, logger *log.Logger) *ResponseWorker {
	return &ResponseWorker{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

func (rw *ResponseWorker) Start(ctx context.Context, interval time.Duration) {
	if !rw.cfg.Enabled {
		rw.logger.Println("IMAP not configured, response worker disabled")
		return
	}

	rw.logger.Println("Response worker started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.logger.Println("Response worker shutting down...")
			return
		case <-ticker.C:
			if err := rw.collectResponses(); err != nil {
				rw.logger.Printf("Response collection failed: %v", err)
			}
		}
	}
}

func (rw *ResponseWorker) collectResponses() error {
	var imapClient *client.Client
	var err error
	imapAddr := fmt.Sprintf("%s:%d", rw.cfg.Host, rw.cfg.Port)

	switch strings.ToUpper(rw.cfg.Encryption) {
	case "SSL", "TLS":
		imapClient, err = client.DialTLS(imapAddr, &tls.Config{
			ServerName: rw.cfg.Host,
		})
	case "STARTTLS":
		imapClient, err = client.Dial(imapAddr)
		if err == nil {
			err = imapClient.StartTLS(&tls.Config{
				ServerName: rw.cfg.Host,
			})
		}
	default:
		imapClient, err = client.Dial(imapAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(rw.cfg.Username, rw.cfg.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	mailbox := rw.cfg.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := imapClient.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := rw.processMessage(msg); err != nil {
			rw.logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
			continue
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %w", err)
	}
	return nil
}

func (rw *ResponseWorker) processMessage(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return nil
	}
	from := strings.ToLower(msg.Envelope.From[0].Address())

	// Only keep replies from addresses that appear in a recipient list;
	// the owning sequence tells us which user the reply belongs to.
	var seq models.Sequence
	err := rw.db.Joins("JOIN sequence_recipients ON sequence_recipients.sequence_id = sequences.id").
		Where("lower(sequence_recipients.to_email) = ? AND sequence_recipients.deleted_at IS NULL", from).
		Order("sequences.id desc").
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recipient lookup failed: %w", err)
	}

	// Already collected on a previous poll
	if msg.Envelope.MessageId != "" {
		var count int64
		if err := rw.db.Model(&models.SequenceResponse{}).
			Where("message_id = ?", msg.Envelope.MessageId).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
	}

	bodyText, err := extractBodyText(msg)
	if err != nil {
		return err
	}

	response := models.SequenceResponse{
		UserID:       seq.UserID,
		FromEmail:    from,
		Subject:      msg.Envelope.Subject,
		ResponseText: bodyText,
		ReceivedAt:   msg.Envelope.Date,
		MessageID:    msg.Envelope.MessageId,
	}
	if err := rw.db.Create(&response).Error; err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}

	rw.logger.Printf("Collected response from %s for user %s", from, seq.UserID)
	return nil
}

// extractBodyText pulls the text/plain part of the message, falling back to
// text/html when that is all the sender provided.
func extractBodyText(msg *imap.Message) (string, error) {
	if msg.Body == nil {
		return "", nil
	}

	section := imap.BodySectionName{}
	literal := msg.GetBody(&section)
	if literal == nil {
		return "", fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %w", err)
	}

	var bodyText, bodyHTML string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %w", err)
			}

			if strings.Contains(contentType, "text/plain") {
				bodyText = string(b)
			} else if strings.Contains(contentType, "text/html") {
				bodyHTML = string(b)
			}
		}
	}

	if bodyText != "" {
		return bodyText, nil
	}
	return bodyHTML, nil
}
