package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// hotLeadAlertTemplate is the HTML alert delivered to the admin chat when a
// hot lead is captured.
const hotLeadAlertTemplate = `<b>🔥 Lead Quente Capturado! 🔥</b>
<b>Nome:</b> %s
<b>Email:</b> %s
<b>Telefone:</b> %s
<b>Interesse:</b> %s`

// AdminNotifier delivers hot-lead alerts to a fixed administrative chat.
type AdminNotifier struct {
	sender      HTMLSender
	adminChatID string
}

// NewAdminNotifier creates a notifier targeting the given admin chat ID.
// An empty chat ID disables delivery; alerts are then logged and dropped.
func NewAdminNotifier(sender HTMLSender, adminChatID string) *AdminNotifier {
	return &AdminNotifier{sender: sender, adminChatID: adminChatID}
}

// NotifyHotLead sends the formatted alert for the given lead to the admin chat.
func (n *AdminNotifier) NotifyHotLead(ctx context.Context, lead models.Lead) error {
	if n.adminChatID == "" {
		slog.Warn("AdminNotifier: admin chat ID not configured, skipping hot lead alert")
		return nil
	}

	body := fmt.Sprintf(hotLeadAlertTemplate, lead.Nome, lead.Email, lead.Telefone, lead.Interesse)
	if err := n.sender.SendHTMLMessage(ctx, n.adminChatID, body); err != nil {
		slog.Error("AdminNotifier: failed to deliver hot lead alert", "error", err, "adminChatID", n.adminChatID)
		return fmt.Errorf("failed to notify admin: %w", err)
	}

	slog.Info("AdminNotifier: hot lead alert delivered", "adminChatID", n.adminChatID)
	return nil
}
