package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/metrics"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/session"
)

// Finalization prompts.
const (
	extractionSystemPrompt = `Analise o seguinte histórico de conversa e extraia as informações de Nome, Email, Telefone e Interesse do usuário.
Responda APENAS com um objeto JSON válido com as chaves "Nome", "Email", "Telefone" e "Interesse". Se uma informação não for encontrada, use o valor "Não informado".`

	classificationSystemPrompt = `Você é um analista de vendas sênior. Analise os dados do lead abaixo e classifique seu potencial.`

	classificationInstruction = `Use estritamente uma das seguintes classificações: "Lead Quente", "Lead Morno", "Lead Frio".
Responda APENAS com a classificação.`
)

// finalize runs the end-of-dialogue pipeline: extraction, classification,
// hot-lead notification and persistence. A failed extraction model call is
// unrecoverable and discards the session, like any other mid-turn model
// failure; a malformed extraction reply aborts the remaining steps but still
// finalizes the session. It reports whether the session should transition to
// COMPLETED.
func (f *LeadFlow) finalize(ctx context.Context, sess *session.Session) bool {
	reply, err := f.genaiClient.GeneratePromptWithContext(ctx, extractionSystemPrompt, "Histórico da Conversa:\n"+sess.Transcript())
	if err != nil {
		slog.Error("LeadFlow.finalize: extraction call failed, discarding session", "error", err, "userID", sess.UserID)
		metrics.RecordModelError("extraction")
		f.sessions.Remove(sess.UserID)
		f.sendReply(ctx, sess.UserID, msgTurnError)
		return false
	}

	lead, err := parseLead(reply)
	if err != nil {
		slog.Error("LeadFlow.finalize: extraction reply unparseable, aborting pipeline", "error", err, "userID", sess.UserID)
		f.sendReply(ctx, sess.UserID, msgExtractionFailed)
		return true
	}
	slog.Info("LeadFlow.finalize: lead extracted", "userID", sess.UserID, "nome", lead.Nome, "interesse", lead.Interesse)

	lead.Classificacao = f.classifyLead(ctx, lead)
	metrics.RecordLeadClassified(lead.Classificacao)

	if lead.Classificacao == models.ClassificationHot {
		if err := f.notifier.NotifyHotLead(ctx, lead); err != nil {
			slog.Error("LeadFlow.finalize: hot lead notification failed", "error", err, "userID", sess.UserID)
		}
	}

	if err := f.sink.AppendLead(ctx, lead); err != nil {
		slog.Error("LeadFlow.finalize: failed to persist lead", "error", err, "userID", sess.UserID)
	}

	// Best effort: the user gets the success acknowledgement even when
	// persistence failed.
	metrics.RecordLeadCaptured()
	f.sendReply(ctx, sess.UserID, msgSaved)
	return true
}

// parseLead parses the extraction reply into a lead record, substituting the
// sentinel for anything missing.
func parseLead(reply string) (models.Lead, error) {
	var lead models.Lead
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &lead); err != nil {
		return models.Lead{}, fmt.Errorf("failed to parse extraction reply: %w", err)
	}
	lead.FillDefaults()
	lead.CapturedAt = time.Now()
	return lead, nil
}

// classifyLead asks the model for one of the three canonical labels. The raw
// stripped reply is stored as-is even when it is out of vocabulary; a failed
// call yields the error sentinel.
func (f *LeadFlow) classifyLead(ctx context.Context, lead models.Lead) string {
	data, err := json.Marshal(lead)
	if err != nil {
		slog.Error("LeadFlow.classifyLead: failed to serialize lead", "error", err)
		return models.ClassificationError
	}

	reply, err := f.genaiClient.GeneratePromptWithContext(ctx, classificationSystemPrompt,
		fmt.Sprintf("Dados: %s\n%s", data, classificationInstruction))
	if err != nil {
		slog.Error("LeadFlow.classifyLead: classification call failed", "error", err)
		metrics.RecordModelError("classification")
		return models.ClassificationError
	}

	classification := strings.TrimSpace(reply)
	if !models.IsCanonicalClassification(classification) {
		slog.Warn("LeadFlow.classifyLead: out-of-vocabulary label stored as-is", "label", classification)
	}
	slog.Info("LeadFlow.classifyLead: classification received", "label", classification)
	return classification
}

// stripCodeFences removes markdown code fence wrapping from a model reply.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
