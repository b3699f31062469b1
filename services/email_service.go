package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// EmailService sends reviewer notifications through Resend. When disabled in
// configuration every send becomes a logged no-op.
type EmailService struct {
	config  *config.EmailConfig
	client  *resend.Client
	metrics *EmailMetrics
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return NewEmailServiceWithRegistry(cfg, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service",
		"from", cfg.FromAddress, "enabled", cfg.Enabled)
	client := resend.NewClient(cfg.ResendAPIKey)
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agripilot_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agripilot_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agripilot_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:  cfg,
		client:  client,
		metrics: metrics,
	}
}

// NotifyAssignment emails a reviewer about a newly assigned extraction.
func (s *EmailService) NotifyAssignment(ctx context.Context, profile *types.ReviewerProfile, assignment *types.ReviewAssignment) error {
	startTime := time.Now()
	log := logger.GetLogger()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	if !s.config.Enabled {
		log.Debugw("Email disabled, skipping assignment notification",
			"reviewerId", profile.ID)
		return nil
	}
	if profile.Email == "" {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("reviewer %s has no email address", profile.ID)
	}

	tmpl, err := template.New("assignment").Parse(assignmentEmailTemplate)
	if err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to parse email template", "error", err)
		return fmt.Errorf("failed to parse template: %w", err)
	}

	name := profile.FullName
	if name == "" {
		name = profile.Email
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, map[string]string{
		"ReviewerName": name,
		"ExtractionID": assignment.ExtractionID,
		"Priority":     string(assignment.Priority),
	}); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to execute email template", "error", err)
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{profile.Email},
		Subject: "New extraction assigned for review",
		Html:    htmlContent.String(),
	}

	if _, err := s.client.Emails.Send(params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send email",
			"error", err,
			"to", profile.Email)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Assignment notification sent", "to", profile.Email)

	return nil
}

const assignmentEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Extraction review assigned</title>
</head>
<body style="font-family: sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 20px auto; padding: 24px; border: 1px solid #e2e2e2; border-radius: 8px;">
        <h1 style="color: #2f7d32; font-size: 22px;">New review assignment</h1>
        <p>Hello {{.ReviewerName}},</p>
        <p>A document extraction has been assigned to you for review
        (priority: <strong>{{.Priority}}</strong>).</p>
        <p>Extraction reference: <code>{{.ExtractionID}}</code></p>
        <p>Open your review queue to accept, correct or reject the extracted
        fields.</p>
    </div>
</body>
</html>`
