package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/clinova/medbook/internal/cache"
)

func TestChatbotTopicMatching(t *testing.T) {
	svc := NewChatbotService(cache.NewMemoryCache())
	ctx := context.Background()

	cases := []struct {
		text  string
		topic string
	}{
		{"Je veux prendre un rendez-vous avec un médecin", "rendez-vous"},
		{"Comment annuler ma réservation ?", "annulation"},
		{"Quels sont vos horaires d'ouverture ?", "horaires"},
		{"C'est urgent, j'ai une forte douleur", "urgence"},
		{"Où trouver mon ordonnance ?", "dossier"},
		{"blablabla xyz", "aucun"},
	}
	for _, c := range cases {
		reply := svc.Message(ctx, "", c.text)
		if reply.Topic != c.topic {
			t.Errorf("Message(%q) topic = %s, want %s", c.text, reply.Topic, c.topic)
		}
		if reply.Reply == "" || reply.SessionID == "" {
			t.Errorf("Message(%q) returned empty reply or session", c.text)
		}
	}

	// No match falls back to the canned answer.
	if reply := svc.Message(ctx, "", "blablabla xyz"); reply.Reply != chatFallback {
		t.Errorf("expected fallback reply, got %q", reply.Reply)
	}
}

func TestChatbotBestTopicWins(t *testing.T) {
	svc := NewChatbotService(cache.NewMemoryCache())

	// Two phrases from one topic outweigh a single phrase from another.
	reply := svc.Message(context.Background(), "", "je veux annuler et reporter mon rendez-vous")
	if reply.Topic != "annulation" {
		t.Fatalf("expected annulation to win with two hits, got %s", reply.Topic)
	}
}

func TestChatbotHistoryCapAndReset(t *testing.T) {
	svc := NewChatbotService(cache.NewMemoryCache())
	ctx := context.Background()
	session := "session-1"

	// 15 exchanges produce 30 entries; only the last 20 survive.
	for i := 1; i <= 15; i++ {
		svc.Message(ctx, session, fmt.Sprintf("message %d", i))
	}

	history := svc.History(ctx, session)
	if len(history) != 20 {
		t.Fatalf("expected history capped at 20, got %d", len(history))
	}
	if history[0].From != "user" || history[0].Text != "message 6" {
		t.Fatalf("oldest entries must be evicted first, got %+v", history[0])
	}
	if last := history[len(history)-1]; last.From != "bot" {
		t.Fatalf("history must end with the bot reply, got %+v", last)
	}

	svc.Reset(ctx, session)
	if history := svc.History(ctx, session); history != nil {
		t.Fatalf("reset must clear the session, got %d entries", len(history))
	}
}
