package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/clinova/medbook/internal/cache"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	conversationCap = 20
	conversationTTL = 2 * time.Hour
)

// ChatMessage is one exchange entry in a conversation history.
type ChatMessage struct {
	From  string    `json:"from"` // user or bot
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
	Topic string    `json:"topic,omitempty"`
	Score int       `json:"score,omitempty"`
}

// ChatReply is the bot's answer to one message.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Topic     string `json:"topic"`
}

// chatTopic couples trigger phrases with a canned answer. Matching is a flat
// contains-scan; the topic with the most phrase hits wins.
type chatTopic struct {
	name    string
	phrases []string
	reply   string
}

var chatTopics = []chatTopic{
	{
		name:    "rendez-vous",
		phrases: []string{"rendez-vous", "rdv", "réserver", "reserver", "prendre", "disponibilité", "disponibilite", "créneau", "creneau"},
		reply:   "Pour prendre rendez-vous, choisissez un médecin puis un créneau disponible dans la page Rendez-vous.",
	},
	{
		name:    "annulation",
		phrases: []string{"annuler", "annulation", "supprimer", "déplacer", "deplacer", "reporter"},
		reply:   "Vous pouvez annuler ou déplacer un rendez-vous depuis votre espace patient, rubrique Mes rendez-vous.",
	},
	{
		name:    "horaires",
		phrases: []string{"horaires", "ouverture", "fermeture", "ouvert", "fermé", "ferme", "heures"},
		reply:   "La clinique est ouverte du lundi au vendredi de 8h à 19h et le samedi de 9h à 13h.",
	},
	{
		name:    "urgence",
		phrases: []string{"urgence", "urgent", "grave", "douleur", "samu"},
		reply:   "En cas d'urgence vitale, appelez immédiatement le 15 (SAMU) ou le 112.",
	},
	{
		name:    "dossier",
		phrases: []string{"dossier", "ordonnance", "résultats", "resultats", "analyses", "documents"},
		reply:   "Votre dossier médical et vos documents sont consultables dans votre espace patient, rubrique Mon dossier.",
	},
}

const chatFallback = "Je n'ai pas compris votre demande. Pouvez-vous reformuler, ou contacter l'accueil de la clinique ?"

// ChatbotService answers messages with a keyword scorer and keeps a bounded
// per-session history: at most 20 entries, oldest evicted first, expiring
// with the cache TTL. Reset clears the session explicitly.
type ChatbotService struct {
	cache cache.Cache
}

// NewChatbotService creates a new chatbot service
func NewChatbotService(c cache.Cache) *ChatbotService {
	return &ChatbotService{cache: c}
}

// Message scores the input against every topic's phrase list and returns
// the best topic's reply, or a fallback when nothing matches.
func (s *ChatbotService) Message(ctx context.Context, sessionID, text string) *ChatReply {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	topic, score := scoreMessage(text)
	reply := chatFallback
	name := "aucun"
	if topic != nil {
		reply = topic.reply
		name = topic.name
	}

	now := time.Now().UTC()
	s.appendHistory(ctx, sessionID,
		ChatMessage{From: "user", Text: text, At: now, Topic: name, Score: score},
		ChatMessage{From: "bot", Text: reply, At: now, Topic: name},
	)

	return &ChatReply{SessionID: sessionID, Reply: reply, Topic: name}
}

// History returns the stored conversation for a session.
func (s *ChatbotService) History(ctx context.Context, sessionID string) []ChatMessage {
	data, err := s.cache.Get(ctx, cache.ConversationKey(sessionID))
	if err != nil {
		return nil
	}
	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil
	}
	return history
}

// Reset clears a session's history.
func (s *ChatbotService) Reset(ctx context.Context, sessionID string) {
	if err := s.cache.Delete(ctx, cache.ConversationKey(sessionID)); err != nil {
		log.Debug().Err(err).Str("session", sessionID).Msg("Conversation reset failed")
	}
}

func (s *ChatbotService) appendHistory(ctx context.Context, sessionID string, messages ...ChatMessage) {
	history := s.History(ctx, sessionID)
	history = append(history, messages...)
	if len(history) > conversationCap {
		history = history[len(history)-conversationCap:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.ConversationKey(sessionID), data, conversationTTL); err != nil {
		log.Debug().Err(err).Str("session", sessionID).Msg("Conversation store failed")
	}
}

func scoreMessage(text string) (*chatTopic, int) {
	lower := strings.ToLower(text)
	var best *chatTopic
	bestScore := 0
	for i := range chatTopics {
		score := 0
		for _, phrase := range chatTopics[i].phrases {
			if strings.Contains(lower, phrase) {
				score++
			}
		}
		if score > bestScore {
			best = &chatTopics[i]
			bestScore = score
		}
	}
	return best, bestScore
}
