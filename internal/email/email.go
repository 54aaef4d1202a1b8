package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"rekrut-portal/config"
	"rekrut-portal/internal/models"
)

// EmailService delivers queued notifications over SMTP. It satisfies the
// dispatcher's Sender interface.
type EmailService struct {
	config *config.Config
	logger *zap.Logger
	auth   smtp.Auth
}

func NewEmailService(cfg *config.Config, logger *zap.Logger) *EmailService {
	var auth smtp.Auth
	if cfg.Email.SMTPUser != "" && cfg.Email.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.Email.SMTPUser, cfg.Email.SMTPPassword, cfg.Email.SMTPHost)
	}

	return &EmailService{
		config: cfg,
		logger: logger,
		auth:   auth,
	}
}

// subjects maps each notification template to its mail subject line.
var subjects = map[models.NotificationTemplate]string{
	models.TemplateApplicationSubmitted: "Lamaran Anda telah diterima",
	models.TemplateStageAdvanced:        "Lamaran Anda maju ke tahap berikutnya",
	models.TemplateStageScheduled:       "Jadwal tahap seleksi Anda",
	models.TemplateApplicationRejected:  "Hasil lamaran Anda",
	models.TemplateApplicationAccepted:  "Selamat! Lamaran Anda diterima",
	models.TemplatePlacementCreated:     "Penempatan kerja Anda telah dibuat",
	models.TemplateContractExpiryAlert:  "Kontrak kerja Anda akan segera berakhir",
	models.TemplatePlacementTerminated:  "Penempatan kerja Anda telah dihentikan",
	models.TemplatePlacementCompleted:   "Penempatan kerja Anda telah selesai",
	models.TemplateCommissionPaid:       "Komisi Anda telah dibayarkan",
}

// Send renders the notification's template and delivers it to the
// recipient. In development mode the mail is logged instead of sent.
func (e *EmailService) Send(notification *models.Notification) error {
	subject, ok := subjects[notification.Template]
	if !ok {
		return fmt.Errorf("no subject for template %s", notification.Template)
	}

	if e.config.IsDevelopment() {
		e.logger.Info("Email would be sent in production",
			zap.String("to", notification.Recipient),
			zap.String("subject", subject),
			zap.String("template", string(notification.Template)))
		return nil
	}

	body, err := e.renderTemplate(notification.Template, notification.GetVariables())
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	message := e.buildMessage(notification.Recipient, subject, body)

	addr := fmt.Sprintf("%s:%d", e.config.Email.SMTPHost, e.config.Email.SMTPPort)
	if err := smtp.SendMail(addr, e.auth, e.config.Email.From, []string{notification.Recipient}, []byte(message)); err != nil {
		e.logger.Error("Failed to send email",
			zap.Error(err),
			zap.String("to", notification.Recipient),
			zap.String("subject", subject))
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("Email sent successfully",
		zap.String("to", notification.Recipient),
		zap.String("subject", subject))

	return nil
}

// renderTemplate renders an email template with the notification variables
func (e *EmailService) renderTemplate(name models.NotificationTemplate, vars map[string]string) (string, error) {
	templates := map[models.NotificationTemplate]string{
		models.TemplateApplicationSubmitted: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Lamaran Diterima</h1>
        <p>Lamaran Anda untuk posisi <strong>{{.requisition_title}}</strong> telah kami terima dan sedang diproses.</p>
        <p>Skor kecocokan Anda: <strong>{{.matching_score}}</strong></p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateStageAdvanced: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Tahap Berikutnya</h1>
        <p>Lamaran Anda untuk posisi <strong>{{.requisition_title}}</strong> telah maju dari tahap {{.previous_stage}} ke tahap <strong>{{.current_stage}}</strong>.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateStageScheduled: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Jadwal Seleksi</h1>
        <p>Tahap <strong>{{.stage}}</strong> untuk posisi <strong>{{.requisition_title}}</strong> dijadwalkan pada {{.scheduled_at}}.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateApplicationRejected: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #555;">Hasil Lamaran</h1>
        <p>Mohon maaf, lamaran Anda untuk posisi <strong>{{.requisition_title}}</strong> belum dapat kami lanjutkan.</p>
        {{if .reason}}<p>Catatan: {{.reason}}</p>{{end}}
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateApplicationAccepted: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Selamat!</h1>
        <p>Lamaran Anda untuk posisi <strong>{{.requisition_title}}</strong> telah diterima. Tim kami akan menghubungi Anda untuk penempatan.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplatePlacementCreated: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Penempatan Kerja</h1>
        <p>Penempatan Anda untuk posisi <strong>{{.requisition_title}}</strong> telah dibuat.</p>
        <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
            <p><strong>Mulai:</strong> {{.start_date}}</p>
            <p><strong>Berakhir:</strong> {{.end_date}}</p>
        </div>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateContractExpiryAlert: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #b8860b;">Kontrak Segera Berakhir</h1>
        <p>Kontrak Anda untuk posisi <strong>{{.requisition_title}}</strong> akan berakhir dalam <strong>{{.days_left}} hari</strong> ({{.end_date}}).</p>
        <p>Silakan hubungi perekrut Anda untuk perpanjangan atau penempatan berikutnya.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplatePlacementTerminated: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #555;">Penempatan Dihentikan</h1>
        <p>Penempatan Anda untuk posisi <strong>{{.requisition_title}}</strong> telah dihentikan.</p>
        {{if .reason}}<p>Alasan: {{.reason}}</p>{{end}}
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplatePlacementCompleted: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Penempatan Selesai</h1>
        <p>Penempatan Anda untuk posisi <strong>{{.requisition_title}}</strong> telah selesai. Terima kasih atas kerja sama Anda.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,

		models.TemplateCommissionPaid: `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1 style="color: #1a7f5a;">Komisi Dibayarkan</h1>
        <p>Komisi sebesar <strong>Rp {{.amount}}</strong> telah dikreditkan ke akun Anda.</p>
        <p>Tim Rekrut Portal</p>
    </div>
</body>
</html>`,
	}

	templateStr, exists := templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	tmpl, err := template.New(string(name)).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// buildMessage builds the email message with headers
func (e *EmailService) buildMessage(to, subject, body string) string {
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", e.config.Email.FromName, e.config.Email.From)
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message strings.Builder
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n" + body)

	return message.String()
}
