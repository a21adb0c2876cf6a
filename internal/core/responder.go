package core

import (
	"context"
	"strings"
	"time"
)

// Responder produces the assistant's reply for a user message. The keyword
// matcher below is the built-in implementation; a real inference backend
// can be plugged in behind the same interface.
type Responder interface {
	Respond(ctx context.Context, input string) (string, error)
}

// DefaultReply is returned when no keyword rule matches the input.
const DefaultReply = "Entiendo tu mensaje. ¿Puedes proporcionar más detalles para que pueda ayudarte mejor?"

type keywordRule struct {
	keywords []string
	response string
}

// KeywordResponder matches lowercased input against an ordered rule list.
// The first rule with any keyword appearing as a substring wins. A
// configurable delay simulates composition so callers can render a
// transient "typing" state.
type KeywordResponder struct {
	delay time.Duration
	rules []keywordRule
}

func NewKeywordResponder(delay time.Duration) *KeywordResponder {
	return &KeywordResponder{
		delay: delay,
		rules: []keywordRule{
			{
				keywords: []string{"hola", "saludos", "buenos días", "buenas tardes", "buenas noches"},
				response: "¡Hola! ¿En qué puedo ayudarte hoy?",
			},
			{
				keywords: []string{"ayuda", "ayúdame", "necesito ayuda"},
				response: "Estoy aquí para ayudarte. Por favor, dime más sobre lo que necesitas.",
			},
			{
				keywords: []string{"gracias", "te agradezco"},
				response: "No hay de qué. Estoy aquí para asistirte.",
			},
			{
				keywords: []string{"adiós", "hasta luego", "nos vemos"},
				response: "¡Hasta pronto! No dudes en volver si necesitas más ayuda.",
			},
			{
				keywords: []string{"tiempo", "clima", "lluvia", "temperatura"},
				response: "Lo siento, no tengo acceso a información en tiempo real sobre el clima.",
			},
			{
				keywords: []string{"nombre", "llamas", "eres"},
				response: "Soy un asistente virtual diseñado para ayudarte con tus preguntas.",
			},
		},
	}
}

func (r *KeywordResponder) Respond(ctx context.Context, input string) (string, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	lower := strings.ToLower(input)
	for _, rule := range r.rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.response, nil
			}
		}
	}
	return DefaultReply, nil
}
