// Package flow implements the lead capture conversation flow: a per-user
// dialogue driven by the language model, completion detection via the
// termination marker, and the finalization pipeline that turns a finished
// dialogue into a classified, persisted lead record.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/genai"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/messaging"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/metrics"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/session"
)

// TerminationMarker is the exact token the model is instructed to emit once,
// when it judges all required fields collected.
const TerminationMarker = "[CONVERSA_FINALIZADA]"

// systemPrompt is the fixed persona and data-collection contract seeded into
// every new session.
const systemPrompt = `Você é um assistente de vendas virtual, seu nome é LeadBot. Você é amigável, profissional e muito eficiente.
Sua missão é conversar com um potencial cliente para entender suas necessidades e coletar as seguintes informações:
1. Nome Completo
2. Endereço de E-mail
3. Número de Telefone (WhatsApp)
4. Área de Interesse Principal (o serviço que mais lhe chama a atenção)

REGRAS IMPORTANTES:
- Faça APENAS UMA pergunta de cada vez.
- Seja natural e direto. Após receber uma informação, peça a próxima sem fazer uma frase de confirmação.
- Inicie a conversa se apresentando e pedindo o nome do usuário.
- Quando você tiver coletado com sucesso TODAS as 4 informações (Nome, Email, Telefone e Interesse), finalize a sua resposta com a frase exata e sem formatação adicional: [CONVERSA_FINALIZADA]
- Não use esta frase em nenhuma outra circunstância.`

// openingQuestion is the model's fixed first turn in a fresh session.
const openingQuestion = "Olá! Eu sou o LeadBot, seu assistente de vendas virtual. Para começarmos, qual é o seu nome completo?"

// User-facing replies.
const (
	msgGreeting         = "Olá, %s! 👋 Eu sou o LeadBot, seu assistente de vendas virtual."
	msgAlreadyCompleted = "Fico feliz em ter ajudado! Se precisar iniciar uma nova cotação, pode usar o comando /start a qualquer momento."
	msgProcessing       = "Obrigado! A processar e guardar as suas informações..."
	msgSaved            = "Pronto! As suas informações foram registadas com sucesso. Entraremos em contato em breve."
	msgExtractionFailed = "Tive um problema ao organizar as suas informações. Pode tentar novamente mais tarde?"
	msgTurnError        = "Desculpe, ocorreu um erro. Vamos tentar reiniciar. Por favor, envie /start novamente."
)

// Notifier delivers the hot-lead alert to the administrative recipient.
type Notifier interface {
	NotifyHotLead(ctx context.Context, lead models.Lead) error
}

// LeadSink persists finished lead records.
type LeadSink interface {
	AppendLead(ctx context.Context, lead models.Lead) error
}

// LeadFlow drives per-user dialogues and finalizes completed ones.
type LeadFlow struct {
	sessions    *session.Manager
	genaiClient genai.ClientInterface
	msgService  messaging.Service
	notifier    Notifier
	sink        LeadSink
}

// NewLeadFlow creates a lead flow with its dependencies.
func NewLeadFlow(sessions *session.Manager, genaiClient genai.ClientInterface, msgService messaging.Service, notifier Notifier, sink LeadSink) *LeadFlow {
	slog.Debug("flow.NewLeadFlow: creating flow with dependencies",
		"hasGenAI", genaiClient != nil, "hasMessaging", msgService != nil, "hasNotifier", notifier != nil, "hasSink", sink != nil)
	return &LeadFlow{
		sessions:    sessions,
		genaiClient: genaiClient,
		msgService:  msgService,
		notifier:    notifier,
		sink:        sink,
	}
}

// DetectCompletion reports whether the model reply signals end-of-dialogue
// and returns the reply with the termination marker stripped. The marker
// contract is a convention enforced only by the system prompt, so detection
// stays a substring check isolated here.
func DetectCompletion(text string) (bool, string) {
	if !strings.Contains(text, TerminationMarker) {
		return false, text
	}
	visible := strings.TrimSpace(strings.ReplaceAll(text, TerminationMarker, ""))
	return true, visible
}

// HandleRestart discards any existing session for the user and starts a fresh
// dialogue. It greets the user and runs the first turn with a synthetic
// opening message carrying the user's first name.
func (f *LeadFlow) HandleRestart(ctx context.Context, userID, firstName string) error {
	slog.Info("LeadFlow.HandleRestart: restarting session", "userID", userID)

	f.sendReply(ctx, userID, fmt.Sprintf(msgGreeting, firstName))
	f.seedSession(userID)
	metrics.RecordSessionStarted()

	return f.runTurn(ctx, userID, syntheticOpening(firstName))
}

// HandleMessage routes a freeform text message to the user's session,
// creating one when none exists.
func (f *LeadFlow) HandleMessage(ctx context.Context, userID, firstName, text string) error {
	sess, ok := f.sessions.Get(userID)

	if ok && sess.State == session.StateCompleted {
		slog.Debug("LeadFlow.HandleMessage: session already completed", "userID", userID)
		f.sendReply(ctx, userID, msgAlreadyCompleted)
		return nil
	}

	if !ok {
		// First contact without /start: seed a session and open with the
		// synthetic greeting so the model starts from question one.
		slog.Debug("LeadFlow.HandleMessage: no session, seeding a new one", "userID", userID)
		f.seedSession(userID)
		metrics.RecordSessionStarted()
		text = syntheticOpening(firstName)
	}

	return f.runTurn(ctx, userID, text)
}

// seedSession installs a fresh ACTIVE session seeded with the system
// instruction and the fixed opening question.
func (f *LeadFlow) seedSession(userID string) *session.Session {
	seed := []models.ConversationMessage{
		{Role: models.RoleSystem, Content: systemPrompt},
		{Role: models.RoleModel, Content: openingQuestion},
	}
	return f.sessions.CreateOrReplace(userID, seed)
}

// runTurn appends the user message, asks the model for the next reply, and
// either surfaces it or finalizes the session when the termination marker is
// detected. A model failure here is unrecoverable for the session: the entry
// is removed and the user is told to restart.
func (f *LeadFlow) runTurn(ctx context.Context, userID, userText string) error {
	sess, ok := f.sessions.Get(userID)
	if !ok {
		return fmt.Errorf("no session for user %s", userID)
	}

	sess.Append(models.RoleUser, userText)

	reply, err := f.genaiClient.GenerateWithMessages(ctx, buildMessages(sess.History))
	if err != nil {
		slog.Error("LeadFlow.runTurn: model call failed, discarding session", "error", err, "userID", userID)
		metrics.RecordModelError("turn")
		f.sessions.Remove(userID)
		f.sendReply(ctx, userID, msgTurnError)
		return fmt.Errorf("turn failed for user %s: %w", userID, err)
	}

	done, visible := DetectCompletion(reply)
	if !done {
		sess.Append(models.RoleModel, reply)
		f.sendReply(ctx, userID, reply)
		return nil
	}

	slog.Info("LeadFlow.runTurn: termination marker detected, finalizing", "userID", userID, "turns", len(sess.History))
	if visible != "" {
		f.sendReply(ctx, userID, visible)
	}
	f.sendReply(ctx, userID, msgProcessing)

	if f.finalize(ctx, sess) {
		f.sessions.MarkCompleted(userID)
	}
	return nil
}

// buildMessages converts session history into the model's message sequence.
func buildMessages(history []models.ConversationMessage) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case models.RoleModel:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	return messages
}

// syntheticOpening is the first user turn injected on behalf of the user so
// the model greets with context.
func syntheticOpening(firstName string) string {
	return "Olá, meu nome é " + firstName
}

// sendReply delivers a message to the user, logging delivery failures.
func (f *LeadFlow) sendReply(ctx context.Context, userID, body string) {
	if err := f.msgService.SendMessage(ctx, userID, body); err != nil {
		slog.Error("LeadFlow.sendReply: failed to deliver reply", "error", err, "userID", userID)
	}
}
