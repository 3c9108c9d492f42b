package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	serverToken string
	fromEmail   string
	adminEmail  string
	baseURL     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail, adminEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		adminEmail:  adminEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token and admin address are set.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.adminEmail != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendNewRegistrationNotice tells the site admin that someone registered
// and is waiting for approval.
func (c *Client) SendNewRegistrationNotice(name, registrantEmail string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token or admin address")
	}

	subject := fmt.Sprintf("New registration: %s", name)
	link := fmt.Sprintf("%s/admin/pending", c.baseURL)
	textBody := fmt.Sprintf("%s (%s) just registered and is waiting for approval.\n\nReview pending accounts: %s", name, registrantEmail, link)
	htmlBody := fmt.Sprintf(
		`<p>%s (%s) just registered and is waiting for approval.</p><p><a href="%s">Review pending accounts</a></p>`,
		name, registrantEmail, link,
	)

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       c.adminEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
