package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

func TestTranscriptMapsDirectionsAndKeepsNewest(t *testing.T) {
	var history []domain.Message
	for i := 0; i < 15; i++ {
		dir := domain.DirectionUser
		if i%2 == 1 {
			dir = domain.DirectionSupport
		}
		history = append(history, domain.Message{Text: fmt.Sprintf("m%d", i), Direction: dir})
	}
	history = append(history, domain.Message{PhotoRef: "/uploads/a.png", Direction: domain.DirectionUser})

	turns := Transcript(history)
	assert.Len(t, turns, MaxTranscriptTurns)
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "m5"}, turns[0])
	assert.Equal(t, Turn{Role: RoleUser, Content: "m14"}, turns[len(turns)-1])
}

func TestConversationWrapsHistory(t *testing.T) {
	turns := Conversation("now", []Turn{{Role: RoleUser, Content: "before"}})
	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: "before"},
		{Role: RoleUser, Content: "now"},
	}, turns)
}
