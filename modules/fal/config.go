package fal

import (
	"time"

	"memory-transition-server/modules/common/config"
)

// Model endpoints
const (
	EndpointTransition = "fal-ai/kling-video/o1/image-to-video"
	EndpointEdge       = "fal-ai/kling-video/v2.5-turbo/pro/image-to-video"
)

const (
	DefaultDuration = "5"

	// TransitionNegativePrompt is sent with every synchronous transition request.
	TransitionNegativePrompt = "morphing, scene blending, architecture transforming, unfolding environment, warping, melted buildings, bending geometry, duplicated windows/trees, floating objects, portal/vortex, surreal transition, flicker, jitter, stutter, low-res, cartoon, CGI look, oversharpen, heavy noise, text, watermark, logo"

	EdgeNegativePrompt = "blur, distort, and low quality, watermarks, text"
	EdgeCFGScale       = 0.5
)

// Config - fal.ai queue API 설정
type Config struct {
	APIKey       string
	QueueURL     string
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewConfig - 공통 설정에서 fal 설정 추출
func NewConfig(cfg *config.Config) *Config {
	c := &Config{
		APIKey:       cfg.FalKey,
		QueueURL:     cfg.FalQueueURL,
		PollInterval: cfg.FalPollInterval,
		Timeout:      cfg.FalGenerationTimeout,
	}
	if c.QueueURL == "" {
		c.QueueURL = "https://queue.fal.run"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return c
}
