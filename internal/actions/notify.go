package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"strings"
)

// sendEmail delivers via plain SMTP. Configuration comes from SMTP_HOST,
// SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD and EMAIL_TO.
func (d *Dispatcher) sendEmail(message string) Result {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	to := os.Getenv("EMAIL_TO")
	if host == "" || to == "" {
		return failure("email is not configured (SMTP_HOST/EMAIL_TO)")
	}
	if port == "" {
		port = "587"
	}

	body := strings.Join([]string{
		"From: " + user,
		"To: " + to,
		"Subject: Camera monitoring alert",
		"",
		message,
	}, "\r\n")

	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	if err := smtp.SendMail(host+":"+port, auth, user, []string{to}, []byte(body)); err != nil {
		return failure(fmt.Sprintf("sending email: %v", err))
	}
	return success("email sent to " + to)
}

// sendDiscord posts to the webhook in DISCORD_WEBHOOK_URL.
func (d *Dispatcher) sendDiscord(ctx context.Context, message string) Result {
	webhook := os.Getenv("DISCORD_WEBHOOK_URL")
	if webhook == "" {
		return failure("DISCORD_WEBHOOK_URL is not set")
	}

	payload, _ := json.Marshal(map[string]string{"content": message})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(payload))
	if err != nil {
		return failure(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("posting to discord: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return failure(fmt.Sprintf("discord webhook returned %d", resp.StatusCode))
	}
	return success("discord notification sent")
}

// sendTelegram calls the bot API with TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID.
func (d *Dispatcher) sendTelegram(ctx context.Context, message string) Result {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		return failure("telegram is not configured (TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID)")
	}

	payload, _ := json.Marshal(map[string]string{"chat_id": chatID, "text": message})
	url := fmt.Sprintf("%s/bot%s/sendMessage", d.telegramBaseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return failure(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return failure(fmt.Sprintf("posting to telegram: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return failure(fmt.Sprintf("telegram API returned %d", resp.StatusCode))
	}
	return success("telegram notification sent")
}
