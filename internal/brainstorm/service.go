package brainstorm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slideforge/internal/ai"
	"slideforge/internal/model"
)

const (
	sessionKeyPrefix = "slideforge:brainstorm:"
	sessionTTL       = 24 * time.Hour

	// maxHistoryMessages bounds the context replayed to the model.
	maxHistoryMessages = 40
)

// Message is one turn of a brainstorm conversation.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a stored brainstorm conversation. Sessions live in Redis only;
// they are scratch space, not documents.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Topic     string    `json:"topic"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Idea is one candidate presentation concept distilled from a session.
type Idea struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"keyPoints"`
}

// Service runs brainstorm chats: free-form ideation turns backed by the LLM,
// plus a structured extraction step that turns a finished conversation into
// presentation ideas ready for the generation pipeline.
type Service struct {
	rdb       *redis.Client
	client    ai.Client
	modelName string
	logger    *zap.Logger
}

// NewService wires a brainstorm Service.
func NewService(rdb *redis.Client, client ai.Client, modelName string, logger *zap.Logger) *Service {
	return &Service{
		rdb:       rdb,
		client:    client,
		modelName: modelName,
		logger:    logger.Named("BrainstormService"),
	}
}

// StartSession creates a session seeded with the topic.
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, topic string) (*Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", model.ErrInvalidInput)
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Topic:     topic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession loads a session, checking ownership.
func (s *Service) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, model.ErrForbidden
	}
	return session, nil
}

// Chat appends the user's message, asks the model for the next turn and stores
// the reply. The session TTL resets on every turn.
func (s *Service) Chat(ctx context.Context, sessionID, userID uuid.UUID, message string) (*Session, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, "", fmt.Errorf("%w: message is required", model.ErrInvalidInput)
	}

	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, "", err
	}

	session.Messages = append(session.Messages, Message{Role: "user", Content: message, CreatedAt: time.Now()})

	reply, err := s.callChat(ctx, session)
	if err != nil {
		return nil, "", err
	}
	session.Messages = append(session.Messages, Message{Role: "assistant", Content: reply, CreatedAt: time.Now()})
	session.UpdatedAt = time.Now()

	if len(session.Messages) > maxHistoryMessages {
		session.Messages = session.Messages[len(session.Messages)-maxHistoryMessages:]
	}

	if err := s.save(ctx, session); err != nil {
		return nil, "", err
	}
	return session, reply, nil
}

type chatPayload struct {
	Reply string `json:"reply"`
}

func (s *Service) callChat(ctx context.Context, session *Session) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nConversation so far:\n", session.Topic)
	for _, m := range session.Messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	systemPrompt := "You are a creative brainstorming partner helping the user shape ideas for a presentation. " +
		"Ask clarifying questions, suggest angles and structure, and keep replies short. " +
		`Respond with a JSON object of the shape {"reply": string}.`

	temperature := 0.8
	raw, _, err := s.client.GenerateJSON(ctx, s.modelName, systemPrompt, b.String(), ai.Params{Temperature: &temperature})
	if err != nil {
		return "", err
	}

	var payload chatPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || strings.TrimSpace(payload.Reply) == "" {
		return "", fmt.Errorf("%w: malformed brainstorm reply", model.ErrAIGenerationFailed)
	}
	return payload.Reply, nil
}

type ideasPayload struct {
	Ideas []Idea `json:"ideas"`
}

// ExtractIdeas distills the conversation into concrete presentation ideas via
// one structured call.
func (s *Service) ExtractIdeas(ctx context.Context, sessionID, userID uuid.UUID) ([]Idea, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if len(session.Messages) == 0 {
		return nil, fmt.Errorf("%w: session has no messages to extract from", model.ErrInvalidInput)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nConversation:\n", session.Topic)
	for _, m := range session.Messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}

	systemPrompt := "Distill this brainstorming conversation into up to 3 concrete presentation ideas. " +
		`Respond with a JSON object of the shape {"ideas": [{"title": string, "description": string, "keyPoints": [string]}]}.`

	temperature := 0.4
	raw, _, err := s.client.GenerateJSON(ctx, s.modelName, systemPrompt, b.String(), ai.Params{Temperature: &temperature})
	if err != nil {
		return nil, err
	}

	var payload ideasPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || len(payload.Ideas) == 0 {
		return nil, fmt.Errorf("%w: malformed idea extraction", model.ErrAIGenerationFailed)
	}
	return payload.Ideas, nil
}

// ToPrompt renders an idea as a generation prompt for the presentation
// pipeline.
func (i Idea) ToPrompt() string {
	var b strings.Builder
	b.WriteString(i.Title)
	if i.Description != "" {
		fmt.Fprintf(&b, ". %s", i.Description)
	}
	if len(i.KeyPoints) > 0 {
		fmt.Fprintf(&b, " Cover: %s.", strings.Join(i.KeyPoints, "; "))
	}
	return b.String()
}

func (s *Service) save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal brainstorm session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store brainstorm session: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load brainstorm session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brainstorm session: %w", err)
	}
	return &session, nil
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}
