package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG 디코더 등록
	_ "image/png"  // PNG 디코더 등록

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rs/zerolog/log"
)

const DefaultWebPQuality float32 = 90

// Processor decodes uploaded images and re-encodes them as WebP.
type Processor struct {
	Quality float32
}

func NewProcessor() *Processor {
	return &Processor{Quality: DefaultWebPQuality}
}

// Dimensions - 이미지 가로/세로 크기
func (p *Processor) Dimensions(data []byte, contentType string) (int, int, error) {
	if contentType == "image/webp" {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return 0, 0, fmt.Errorf("decode webp: %w", err)
		}
		b := img.Bounds()
		return b.Dx(), b.Dy(), nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ToWebP - JPEG/PNG 바이너리를 WebP로 변환
func (p *Processor) ToWebP(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, p.Quality)
	if err != nil {
		return nil, fmt.Errorf("create webp encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}

	out := buf.Bytes()
	log.Debug().Str("from", format).Int("in", len(data)).Int("out", len(out)).
		Msg("🔄 [Image] converted to webp")
	return out, nil
}
