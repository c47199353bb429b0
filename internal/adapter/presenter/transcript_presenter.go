package presenter

import (
	"github.com/google/uuid"

	"github.com/eum-live/caption-pipeline/internal/adapter/dto/caption"
	"github.com/eum-live/caption-pipeline/internal/domain/entities"
)

// ToTranscriptResponse converts a SessionTranscript entity to its DTO
func ToTranscriptResponse(t *entities.SessionTranscript) *caption.TranscriptResponse {
	if t == nil {
		return nil
	}

	words := make([]caption.WordTiming, len(t.Words))
	for i, w := range t.Words {
		words[i] = caption.WordTiming{
			Word:       w.Word,
			StartMs:    w.StartMs,
			EndMs:      w.EndMs,
			Confidence: w.Confidence,
		}
	}

	return &caption.TranscriptResponse{
		ID:                 t.ID,
		SessionID:          t.SessionID,
		ResultID:           t.ResultID,
		SpeakerUserID:      t.SpeakerUserID,
		SpeakerAttendeeID:  t.SpeakerAttendeeID,
		SpeakerDisplayName: t.SpeakerDisplayName,
		Text:               t.Text,
		LanguageCode:       t.LanguageCode,
		StartTimeMs:        t.StartTimeMs,
		EndTimeMs:          t.EndTimeMs,
		Confidence:         t.Confidence,
		Words:              words,
	}
}

// ToTranscriptListResponse converts the merged session transcript
func ToTranscriptListResponse(sessionID uuid.UUID, transcripts []*entities.SessionTranscript) *caption.TranscriptListResponse {
	responses := make([]*caption.TranscriptResponse, len(transcripts))
	for i, t := range transcripts {
		responses[i] = ToTranscriptResponse(t)
	}
	return &caption.TranscriptListResponse{
		SessionID:   sessionID,
		Transcripts: responses,
		Count:       len(responses),
	}
}

// ToPreferenceResponse converts a LanguagePreference entity to its DTO
func ToPreferenceResponse(p *entities.LanguagePreference) *caption.PreferenceResponse {
	if p == nil {
		return nil
	}
	return &caption.PreferenceResponse{
		SessionID:          p.SessionID,
		UserID:             p.UserID,
		TargetLanguage:     p.TargetLanguage,
		TranslationEnabled: p.TranslationEnabled,
		UpdatedAt:          p.UpdatedAt,
	}
}
