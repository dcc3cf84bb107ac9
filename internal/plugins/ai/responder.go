package ai

import (
	"context"
	"strings"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the transcript sent to a completion backend.
type Turn struct {
	Role    Role
	Content string
}

// Responder generates an automated answer for a user message.
// Implementations return an error wrapping domain.ErrUnavailable when no
// answer can be produced.
type Responder interface {
	Name() string
	Respond(ctx context.Context, text string, history []Turn) (string, error)
}

// MaxTranscriptTurns is how many history turns are sent with each request.
const MaxTranscriptTurns = 10

const SystemPrompt = `Вы - дружелюбный и полезный AI-ассистент службы поддержки.
Ваша задача - помогать пользователям с их вопросами и проблемами.

Важные правила:
1. Будьте вежливы и профессиональны
2. Отвечайте на русском языке, если пользователь пишет на русском
3. Если вы не можете помочь с вопросом или пользователь просит связаться с человеком/оператором,
   скажите что переключаете на оператора поддержки
4. Давайте четкие и конкретные ответы
5. Если вопрос сложный или требует доступа к личным данным пользователя,
   предложите связаться с оператором

Вы - ассистент компании Smile. Отвечайте кратко и по делу.`

// Transcript maps persisted history (oldest first) to user/assistant turns,
// keeping only the newest MaxTranscriptTurns non-empty entries.
func Transcript(history []domain.Message) (ret []Turn) {
	for _, m := range history {
		content := strings.TrimSpace(m.Text)
		if content == "" {
			continue
		}
		role := RoleAssistant
		if m.Direction == domain.DirectionUser {
			role = RoleUser
		}
		ret = append(ret, Turn{Role: role, Content: content})
	}
	if len(ret) > MaxTranscriptTurns {
		ret = ret[len(ret)-MaxTranscriptTurns:]
	}
	return
}

// Conversation prepends the system prompt and appends the current message.
func Conversation(text string, history []Turn) []Turn {
	ret := make([]Turn, 0, len(history)+2)
	ret = append(ret, Turn{Role: RoleSystem, Content: SystemPrompt})
	ret = append(ret, history...)
	ret = append(ret, Turn{Role: RoleUser, Content: text})
	return ret
}
