package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/session"
)

// fakeModel implements genai.ClientInterface with scripted replies.
type fakeModel struct {
	turnReplies  []string // consumed in order by GenerateWithMessages
	turnErr      error
	turnCalls    int
	lastMessages []openai.ChatCompletionMessageParamUnion

	extractReply  string
	extractErr    error
	extractCalls  int
	classifyReply string
	classifyErr   error
	classifyCalls int
}

func (f *fakeModel) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	f.turnCalls++
	f.lastMessages = messages
	if f.turnErr != nil {
		return "", f.turnErr
	}
	if len(f.turnReplies) == 0 {
		return "", fmt.Errorf("fakeModel: no scripted reply")
	}
	reply := f.turnReplies[0]
	f.turnReplies = f.turnReplies[1:]
	return reply, nil
}

func (f *fakeModel) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch systemPrompt {
	case extractionSystemPrompt:
		f.extractCalls++
		return f.extractReply, f.extractErr
	case classificationSystemPrompt:
		f.classifyCalls++
		return f.classifyReply, f.classifyErr
	}
	return "", fmt.Errorf("fakeModel: unexpected system prompt %q", systemPrompt)
}

// fakeMessenger implements messaging.Service and records sent messages.
type fakeMessenger struct {
	sent []sentMessage
}

type sentMessage struct {
	to   string
	body string
}

func (f *fakeMessenger) SendMessage(ctx context.Context, to string, body string) error {
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return nil
}

func (f *fakeMessenger) Start(ctx context.Context) error   { return nil }
func (f *fakeMessenger) Stop() error                       { return nil }
func (f *fakeMessenger) Responses() <-chan models.Response { return nil }

func (f *fakeMessenger) bodies() []string {
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.body
	}
	return out
}

// fakeNotifier records hot lead alerts.
type fakeNotifier struct {
	leads []models.Lead
	err   error
}

func (f *fakeNotifier) NotifyHotLead(ctx context.Context, lead models.Lead) error {
	f.leads = append(f.leads, lead)
	return f.err
}

// fakeSink records persisted leads.
type fakeSink struct {
	leads []models.Lead
	err   error
}

func (f *fakeSink) AppendLead(ctx context.Context, lead models.Lead) error {
	f.leads = append(f.leads, lead)
	return f.err
}

type fixture struct {
	flow     *LeadFlow
	sessions *session.Manager
	model    *fakeModel
	msg      *fakeMessenger
	notifier *fakeNotifier
	sink     *fakeSink
}

func newFixture(model *fakeModel) *fixture {
	f := &fixture{
		sessions: session.NewManager(),
		model:    model,
		msg:      &fakeMessenger{},
		notifier: &fakeNotifier{},
		sink:     &fakeSink{},
	}
	f.flow = NewLeadFlow(f.sessions, model, f.msg, f.notifier, f.sink)
	return f
}

func TestDetectCompletion(t *testing.T) {
	if done, _ := DetectCompletion("Qual é o seu e-mail?"); done {
		t.Error("plain reply must not signal completion")
	}

	done, visible := DetectCompletion("Perfeito, obrigado! " + TerminationMarker)
	if !done {
		t.Fatal("expected completion detected")
	}
	if visible != "Perfeito, obrigado!" {
		t.Errorf("expected marker stripped and trimmed, got %q", visible)
	}

	done, visible = DetectCompletion(TerminationMarker)
	if !done || visible != "" {
		t.Errorf("bare marker: expected done with empty remainder, got %v %q", done, visible)
	}
}

func TestRestartSeedsFreshSession(t *testing.T) {
	f := newFixture(&fakeModel{turnReplies: []string{"Prazer, Maria! Qual é o seu e-mail?"}})

	// Pre-existing state must be discarded.
	f.sessions.CreateOrReplace("42", []models.ConversationMessage{{Role: models.RoleUser, Content: "lixo"}})

	if err := f.flow.HandleRestart(context.Background(), "42", "Maria"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, ok := f.sessions.Get("42")
	if !ok {
		t.Fatal("expected session present")
	}
	if sess.State != session.StateActive {
		t.Errorf("expected ACTIVE, got %s", sess.State)
	}
	if sess.History[0].Role != models.RoleSystem || sess.History[0].Content != systemPrompt {
		t.Error("history must begin with the system instruction")
	}
	if sess.History[1].Role != models.RoleModel || sess.History[1].Content != openingQuestion {
		t.Error("second turn must be the fixed opening question")
	}
	if sess.History[2].Role != models.RoleUser || sess.History[2].Content != "Olá, meu nome é Maria" {
		t.Errorf("third turn must be the synthetic opening, got %+v", sess.History[2])
	}

	bodies := f.msg.bodies()
	if len(bodies) != 2 {
		t.Fatalf("expected greeting + model reply, got %v", bodies)
	}
	if !strings.Contains(bodies[0], "Olá, Maria!") {
		t.Errorf("expected greeting first, got %q", bodies[0])
	}
	if bodies[1] != "Prazer, Maria! Qual é o seu e-mail?" {
		t.Errorf("expected model reply surfaced verbatim, got %q", bodies[1])
	}
}

func TestTurnAppendsOneUserAndOneModelMessage(t *testing.T) {
	f := newFixture(&fakeModel{turnReplies: []string{"Pergunta 1", "Pergunta 2"}})
	if err := f.flow.HandleRestart(context.Background(), "1", "Ana"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, _ := f.sessions.Get("1")
	before := len(sess.History)

	if err := f.flow.HandleMessage(context.Background(), "1", "Ana", "ana@ex.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(sess.History) - before; got != 2 {
		t.Errorf("expected exactly 2 turns appended, got %d", got)
	}
	if sess.State != session.StateActive {
		t.Errorf("non-marker reply must leave session ACTIVE, got %s", sess.State)
	}
}

func TestFirstMessageWithoutStartSeedsSession(t *testing.T) {
	model := &fakeModel{turnReplies: []string{"Olá! Qual é o seu nome completo?"}}
	f := newFixture(model)

	if err := f.flow.HandleMessage(context.Background(), "9", "João", "oi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, ok := f.sessions.Get("9")
	if !ok {
		t.Fatal("expected a session created on first contact")
	}
	// The literal text is replaced by the synthetic opening for the first turn.
	if sess.History[2].Content != "Olá, meu nome é João" {
		t.Errorf("expected synthetic opening, got %q", sess.History[2].Content)
	}
}

func TestCompletedSessionGetsFixedReply(t *testing.T) {
	model := &fakeModel{
		turnReplies:   []string{TerminationMarker},
		extractReply:  `{"Nome":"Ana","Email":"a@b.c","Telefone":"1","Interesse":"X"}`,
		classifyReply: models.ClassificationCold,
	}
	f := newFixture(model)

	if err := f.flow.HandleRestart(context.Background(), "2", "Ana"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ := f.sessions.Get("2")
	if sess.State != session.StateCompleted {
		t.Fatalf("expected COMPLETED, got %s", sess.State)
	}

	extractBefore := model.extractCalls
	sinkBefore := len(f.sink.leads)
	f.msg.sent = nil

	if err := f.flow.HandleMessage(context.Background(), "2", "Ana", "mais uma coisa"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bodies := f.msg.bodies()
	if len(bodies) != 1 || bodies[0] != msgAlreadyCompleted {
		t.Errorf("expected the fixed already-finished reply, got %v", bodies)
	}
	if model.extractCalls != extractBefore || len(f.sink.leads) != sinkBefore {
		t.Error("completed session must never re-trigger the pipeline")
	}
	if model.turnCalls != 1 {
		t.Errorf("completed session must not invoke the model again, calls=%d", model.turnCalls)
	}
}

func TestTurnModelErrorDiscardsSession(t *testing.T) {
	model := &fakeModel{turnErr: errors.New("service unavailable")}
	f := newFixture(model)

	err := f.flow.HandleRestart(context.Background(), "3", "Rui")
	if err == nil {
		t.Fatal("expected error surfaced for logging")
	}

	if _, ok := f.sessions.Get("3"); ok {
		t.Error("session must be removed after a model failure")
	}
	bodies := f.msg.bodies()
	if bodies[len(bodies)-1] != msgTurnError {
		t.Errorf("expected restart apology, got %q", bodies[len(bodies)-1])
	}

	// The next message starts a brand-new dialogue instead of resuming.
	model.turnErr = nil
	model.turnReplies = []string{"Qual é o seu nome completo?"}
	if err := f.flow.HandleMessage(context.Background(), "3", "Rui", "oi de novo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, ok := f.sessions.Get("3")
	if !ok || sess.State != session.StateActive {
		t.Fatal("expected a fresh ACTIVE session")
	}
	if sess.History[0].Content != systemPrompt {
		t.Error("fresh session must be reseeded from question one")
	}
}

func TestModelSeesFullHistoryEachTurn(t *testing.T) {
	model := &fakeModel{turnReplies: []string{"P1", "P2"}}
	f := newFixture(model)

	if err := f.flow.HandleRestart(context.Background(), "4", "Ana"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.lastMessages) != 3 { // system + opening + synthetic user turn
		t.Errorf("expected 3 messages on first turn, got %d", len(model.lastMessages))
	}

	if err := f.flow.HandleMessage(context.Background(), "4", "Ana", "resposta"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.lastMessages) != 5 {
		t.Errorf("expected full accumulated history (5 messages), got %d", len(model.lastMessages))
	}
}
