package websocket

import (
	"encoding/base64"

	"github.com/mlaferte/causerie/domain/entities"
	"github.com/mlaferte/causerie/usecase"
)

// Client → server message types.
const (
	TypeAudioTurn             = "audio_turn"
	TypeCancel                = "cancel"
	TypeRetryTurn             = "retry_turn"
	TypeSetScenario           = "set_scenario"
	TypeClearScenario         = "clear_scenario"
	TypeClearHistory          = "clear_history"
	TypeTranscribeDescription = "transcribe_description"
	TypeResynthesize          = "resynthesize"
)

// Server → client message types.
const (
	TypeTurnResult     = "turn_result"
	TypeTranscription  = "transcription"
	TypeScenarioSet    = "scenario_set"
	TypeHistoryCleared = "history_cleared"
	TypeTurnAudio      = "turn_audio"
	TypeError          = "error"
)

// InboundMessage is the envelope for every client message. Audio travels
// base64-encoded; unused fields stay empty per type.
type InboundMessage struct {
	Type        string                  `json:"type"`
	AudioData   string                  `json:"audio_data,omitempty"`
	MIMEType    string                  `json:"mime_type,omitempty"`
	Description string                  `json:"description,omitempty"`
	Characters  []usecase.CharacterSpec `json:"characters,omitempty"`
	TurnIndex   int                     `json:"turn_index,omitempty"`
}

// TurnPayload is one character reply inside a turn result.
type TurnPayload struct {
	Character entities.Character `json:"character"`
	French    string             `json:"french"`
	English   string             `json:"english"`
	Failed    bool               `json:"failed"`
	AudioData string             `json:"audio_data,omitempty"`
	AudioMIME string             `json:"audio_mime,omitempty"`
}

// TurnResultMessage carries the ordered character replies of one turn.
type TurnResultMessage struct {
	Type     string        `json:"type"`
	UserText string        `json:"user_text"`
	Hint     string        `json:"hint,omitempty"`
	Turns    []TurnPayload `json:"turns"`
}

// TranscriptionMessage returns a scenario-description transcription.
type TranscriptionMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ScenarioSetMessage confirms the active scenario.
type ScenarioSetMessage struct {
	Type     string             `json:"type"`
	Scenario *entities.Scenario `json:"scenario,omitempty"`
}

// TurnAudioMessage carries the audio of a scoped resynthesis retry.
type TurnAudioMessage struct {
	Type      string `json:"type"`
	TurnIndex int    `json:"turn_index"`
	AudioData string `json:"audio_data"`
	AudioMIME string `json:"audio_mime"`
}

// ErrorMessage reports a failed operation. Cancelled is distinguished so
// the client can suppress error UI for user-initiated aborts.
type ErrorMessage struct {
	Type      string `json:"type"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// newTurnResultMessage encodes a turn result for the wire. The caller
// releases the clips afterwards; the encoded copies are what the client
// plays.
func newTurnResultMessage(result *entities.TurnResult) TurnResultMessage {
	msg := TurnResultMessage{
		Type:     TypeTurnResult,
		UserText: result.UserText,
		Hint:     result.Hint,
		Turns:    make([]TurnPayload, 0, len(result.Turns)),
	}
	for _, t := range result.Turns {
		payload := TurnPayload{
			Character: t.Character,
			French:    t.French,
			English:   t.English,
			Failed:    t.Failed,
		}
		if t.Audio != nil && !t.Audio.Released() {
			payload.AudioData = base64.StdEncoding.EncodeToString(t.Audio.Bytes())
			payload.AudioMIME = t.Audio.MIMEType()
		}
		msg.Turns = append(msg.Turns, payload)
	}
	return msg
}
