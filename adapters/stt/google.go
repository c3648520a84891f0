package stt

import (
	"context"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/mlaferte/causerie/domain/repositories"
)

// GoogleTranscriber implements the Transcriber interface using Google
// Cloud Speech-to-Text. Kept as an alternative to the Gemini transcriber
// for deployments that already carry Cloud credentials.
type GoogleTranscriber struct {
	language string
	logger   *zap.Logger
}

var _ repositories.Transcriber = (*GoogleTranscriber)(nil)

// NewGoogleTranscriber creates a Cloud Speech transcriber for the given
// BCP-47 language code (e.g. "fr-FR").
func NewGoogleTranscriber(language string, logger *zap.Logger) *GoogleTranscriber {
	if language == "" {
		language = "fr-FR"
	}
	return &GoogleTranscriber{language: language, logger: logger}
}

// Transcribe recognizes one utterance via a single-shot streaming session,
// keeping only final results.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio repositories.AudioInput) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("audio data is empty")
	}

	encoding, sampleRate, err := encodingForMIME(audio.MIMEType)
	if err != nil {
		return "", err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create speech client: %w", err)
	}
	defer client.Close()

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: sampleRate,
					LanguageCode:    g.language,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		return "", fmt.Errorf("failed to send streaming config: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio.Data,
		},
	}); err != nil {
		return "", fmt.Errorf("failed to send audio data: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return "", fmt.Errorf("failed to close send stream: %w", err)
	}

	var transcript strings.Builder
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to receive response: %w", err)
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				transcript.WriteString(result.Alternatives[0].Transcript)
			}
		}
	}

	g.logger.Info("Audio transcribed",
		zap.String("language", g.language),
		zap.Int("audioBytes", len(audio.Data)),
		zap.Int("textLength", transcript.Len()))
	return transcript.String(), nil
}

// encodingForMIME maps a client MIME type onto the recognition encoding.
func encodingForMIME(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, int32, error) {
	switch {
	case strings.HasPrefix(mimeType, "audio/webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS, 48000, nil
	case strings.HasPrefix(mimeType, "audio/ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS, 48000, nil
	case mimeType == "audio/wav", mimeType == "audio/x-wav", mimeType == "audio/pcm":
		return speechpb.RecognitionConfig_LINEAR16, 16000, nil
	case mimeType == "audio/flac":
		return speechpb.RecognitionConfig_FLAC, 16000, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, 0,
			fmt.Errorf("unsupported audio MIME type: %s", mimeType)
	}
}
