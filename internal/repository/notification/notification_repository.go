package notification

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/pobyzaarif/goshortcute"
)

// alertCooldown suppresses repeats of the same alert subject. Red
// health flaps would otherwise mail operators on every decision.
const alertCooldown = 15 * time.Minute

type AlertsConfig struct {
	AlertsBaseURL           string
	AlertsBasicAuthUsername string
	AlertsBasicAuthPassword string
	AlertsSenderEmail       string
	AlertsSenderName        string
	AlertsRecipientEmail    string
	AlertsRecipientName     string
}

// MailjetRepository delivers operational alerts over the Mailjet send
// API, rate limited per subject.
type MailjetRepository struct {
	alertsConfig AlertsConfig

	mu       sync.Mutex
	lastSent map[string]time.Time
}

var _ routing.AlertNotifier = (*MailjetRepository)(nil)

func NewMailjetRepository(cfg AlertsConfig) *MailjetRepository {
	return &MailjetRepository{
		alertsConfig: cfg,
		lastSent:     make(map[string]time.Time),
	}
}

type payloadSendEmail struct {
	Messages []Messages `json:"Messages"`
}

type From struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

type To struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

type Messages struct {
	From     From   `json:"From"`
	To       []To   `json:"To"`
	Subject  string `json:"Subject"`
	TextPart string `json:"TextPart"`
	HTMLPart string `json:"HTMLPart"`
}

// SendAlert mails the configured operator recipient unless the same
// subject fired inside the cooldown window.
func (r *MailjetRepository) SendAlert(subject, message string) error {
	if !r.shouldSend(subject) {
		return nil
	}
	return r.sendEmail(r.alertsConfig.AlertsRecipientName, r.alertsConfig.AlertsRecipientEmail, subject, message)
}

func (r *MailjetRepository) shouldSend(subject string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if last, ok := r.lastSent[subject]; ok && now.Sub(last) < alertCooldown {
		return false
	}
	r.lastSent[subject] = now
	return true
}

func (r *MailjetRepository) sendEmail(toName, toEmail, subject, message string) error {
	url := r.alertsConfig.AlertsBaseURL + "/v3.1/send"

	payload := payloadSendEmail{
		Messages: []Messages{
			{
				From: From{
					Email: r.alertsConfig.AlertsSenderEmail,
					Name:  r.alertsConfig.AlertsSenderName,
				},
				To: []To{
					{
						Email: toEmail,
						Name:  toName,
					},
				},
				Subject:  subject,
				TextPart: message,
				HTMLPart: message,
			},
		},
	}

	payloadByte, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal json payload: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(string(payloadByte)))
	if err != nil {
		return err
	}

	buildBasicAuth := goshortcute.StringtoBase64Encode(r.alertsConfig.AlertsBasicAuthUsername + ":" + r.alertsConfig.AlertsBasicAuthPassword)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Basic "+buildBasicAuth)

	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(res.Body)
	logger.Warn("Mailer service returned negative response",
		"status", res.StatusCode,
		"body", string(bodyBytes),
	)

	return fmt.Errorf("mailer service return negative response %v", res.StatusCode)
}
