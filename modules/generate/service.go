package generate

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/apperr"
	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/fal"
)

// DefaultPrompt is used when the request prompt is blank.
const DefaultPrompt = "Cinematic drone shot transition between @Image1 and @Image2."

const generationFailedMessage = "Failed to create your memory. Please try again."

var ErrMissingInput = apperr.Validation("Both location images are required")

// Subscriber submits a transition and waits for its result. *fal.Service implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, input fal.TransitionInput) (string, error)
}

// Service - 동기 비디오 생성 서비스
type Service struct {
	provider Subscriber
}

func NewService(provider Subscriber) *Service {
	return &Service{provider: provider}
}

// BuildInput validates a request and resolves its prompt.
func BuildInput(req model.GenerationRequest) (fal.TransitionInput, error) {
	if strings.TrimSpace(req.StartImageURL) == "" || strings.TrimSpace(req.EndImageURL) == "" {
		return fal.TransitionInput{}, ErrMissingInput
	}

	return fal.TransitionInput{
		Prompt:         ResolvePrompt(req.Prompt),
		NegativePrompt: fal.TransitionNegativePrompt,
		StartImageURL:  req.StartImageURL,
		EndImageURL:    req.EndImageURL,
		Duration:       fal.DefaultDuration,
	}, nil
}

// ResolvePrompt returns prompt unchanged unless it is blank.
func ResolvePrompt(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return DefaultPrompt
	}
	return prompt
}

// Generate - 전환 비디오 생성 (완료까지 대기)
func (s *Service) Generate(ctx context.Context, req model.GenerationRequest) (model.GenerationResult, error) {
	input, err := BuildInput(req)
	if err != nil {
		return model.GenerationResult{}, err
	}

	videoURL, err := s.provider.Subscribe(ctx, input)
	if err != nil {
		log.Error().Err(err).Str("start", req.StartImageURL).Str("end", req.EndImageURL).
			Msg("❌ [Generate] generation failed")
		return model.GenerationResult{}, apperr.Upstream(generationFailedMessage, err)
	}
	if videoURL == "" {
		return model.GenerationResult{}, apperr.Upstream(generationFailedMessage, fal.ErrMalformedResponse)
	}

	log.Info().Str("video", videoURL).Msg("✅ [Generate] video ready")
	return model.GenerationResult{VideoURL: videoURL}, nil
}
