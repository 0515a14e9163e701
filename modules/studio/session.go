package studio

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/common/utils"
)

// File - 사용자가 선택한 이미지
type File struct {
	Name        string
	Path        string
	ContentType string
	Data        []byte
}

// API is the server surface the session drives. *HTTPClient implements it.
type API interface {
	Upload(ctx context.Context, file File) (string, error)
	Generate(ctx context.Context, req model.GenerationRequest) (string, error)
}

// PreviewFunc creates a local preview handle for a file. The session closes it exactly once.
type PreviewFunc func(file File) (io.Closer, error)

// Image - 업로드 완료된 슬롯 이미지
type Image struct {
	URL     string
	Name    string
	preview io.Closer
}

// State is a point-in-time copy of the session for rendering.
type State struct {
	Start      *Image
	End        *Image
	Uploading  map[model.Slot]bool
	Prompt     string
	Generating bool
	VideoURL   string
	Error      string
	RetryCount int
}

// Session - 두 장소 이미지와 생성 흐름 상태
type Session struct {
	api        API
	newPreview PreviewFunc

	mu         sync.Mutex
	images     map[model.Slot]*Image
	uploading  map[model.Slot]bool
	prompt     string
	generating bool
	videoURL   string
	errMsg     string
	retryCount int
	closed     bool
}

type Option func(*Session)

// WithPreview sets how previews are created. The default creates none.
func WithPreview(fn PreviewFunc) Option {
	return func(s *Session) { s.newPreview = fn }
}

// NewSession - Session 생성
func NewSession(api API, opts ...Option) *Session {
	s := &Session{
		api:       api,
		images:    make(map[model.Slot]*Image),
		uploading: make(map[model.Slot]bool),
		prompt:    DefaultPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validSlot(slot model.Slot) bool {
	return slot == model.SlotStart || slot == model.SlotEnd
}

// SelectFile - 검증 후 업로드, 성공 시 슬롯 교체
// Validation failures return before any network call and do not touch the session error.
func (s *Session) SelectFile(ctx context.Context, slot model.Slot, file File) error {
	if !validSlot(slot) {
		return ErrUnknownSlot
	}
	if err := utils.ValidateImage(file.ContentType, int64(len(file.Data))); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.uploading[slot] {
		s.mu.Unlock()
		return ErrUploadInProgress
	}
	s.uploading[slot] = true
	s.errMsg = ""
	s.mu.Unlock()

	preview := s.createPreview(file)

	url, err := s.api.Upload(ctx, file)

	s.mu.Lock()
	s.uploading[slot] = false
	if err != nil {
		s.errMsg = FriendlyError(err.Error())
		s.mu.Unlock()
		release(preview)
		log.Warn().Err(err).Str("slot", string(slot)).Msg("⚠️ [Studio] upload failed")
		return err
	}
	if s.closed {
		s.mu.Unlock()
		release(preview)
		return ErrClosed
	}
	prev := s.images[slot]
	s.images[slot] = &Image{URL: url, Name: file.Name, preview: preview}
	s.mu.Unlock()

	if prev != nil {
		release(prev.preview)
	}
	log.Info().Str("slot", string(slot)).Str("url", url).Msg("✅ [Studio] image uploaded")
	return nil
}

func (s *Session) createPreview(file File) io.Closer {
	if s.newPreview == nil {
		return nil
	}
	preview, err := s.newPreview(file)
	if err != nil {
		log.Warn().Err(err).Str("file", file.Name).Msg("⚠️ [Studio] preview unavailable")
		return nil
	}
	return preview
}

func release(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("⚠️ [Studio] failed to release preview")
	}
}

// Remove - 슬롯 이미지 제거
func (s *Session) Remove(slot model.Slot) {
	s.mu.Lock()
	img := s.images[slot]
	delete(s.images, slot)
	s.mu.Unlock()

	if img != nil {
		release(img.preview)
	}
}

func (s *Session) SetPrompt(prompt string) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
}

func (s *Session) ResetPrompt() {
	s.SetPrompt(DefaultPrompt)
}

func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

func (s *Session) PromptModified() bool {
	return s.Prompt() != DefaultPrompt
}

// CanGenerate - 두 슬롯 모두 업로드 완료, 진행 중인 생성 없음
func (s *Session) CanGenerate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canGenerateLocked()
}

func (s *Session) canGenerateLocked() bool {
	if s.closed || s.generating {
		return false
	}
	start, end := s.images[model.SlotStart], s.images[model.SlotEnd]
	return start != nil && start.URL != "" && end != nil && end.URL != ""
}

// Generate - 영상 생성 요청
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	if !s.canGenerateLocked() {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.generating = true
	s.errMsg = ""
	req := model.GenerationRequest{
		StartImageURL: s.images[model.SlotStart].URL,
		EndImageURL:   s.images[model.SlotEnd].URL,
		Prompt:        s.prompt,
	}
	s.mu.Unlock()

	log.Info().Msg("🎬 [Studio] generating memory")
	videoURL, err := s.api.Generate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
	if err != nil {
		s.errMsg = FriendlyError(err.Error())
		log.Warn().Err(err).Msg("⚠️ [Studio] generation failed")
		return err
	}
	s.videoURL = videoURL
	s.retryCount = 0
	log.Info().Str("video_url", videoURL).Msg("✅ [Studio] memory ready")
	return nil
}

// Retry - MaxRetries 까지 재생성, 이후 안내 메시지만 설정
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.retryCount >= MaxRetries {
		s.errMsg = msgExhausted
		s.mu.Unlock()
		return ErrRetriesExhausted
	}
	s.retryCount++
	s.errMsg = ""
	s.mu.Unlock()

	return s.Generate(ctx)
}

func (s *Session) DismissError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Session) CloseResult() {
	s.mu.Lock()
	s.videoURL = ""
	s.mu.Unlock()
}

// Reset - 전체 초기화 (프리뷰 해제, 기본 프롬프트 복원)
func (s *Session) Reset() {
	s.mu.Lock()
	images := s.takeImagesLocked()
	s.prompt = DefaultPrompt
	s.videoURL = ""
	s.errMsg = ""
	s.retryCount = 0
	s.mu.Unlock()

	for _, img := range images {
		release(img.preview)
	}
}

// Close releases every preview. Uploads that finish afterwards release their own preview.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	images := s.takeImagesLocked()
	s.mu.Unlock()

	for _, img := range images {
		release(img.preview)
	}
	return nil
}

func (s *Session) takeImagesLocked() []*Image {
	images := make([]*Image, 0, len(s.images))
	for slot, img := range s.images {
		images = append(images, img)
		delete(s.images, slot)
	}
	return images
}

// State - 현재 상태 스냅샷
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Uploading:  make(map[model.Slot]bool, len(s.uploading)),
		Prompt:     s.prompt,
		Generating: s.generating,
		VideoURL:   s.videoURL,
		Error:      s.errMsg,
		RetryCount: s.retryCount,
	}
	for slot, v := range s.uploading {
		st.Uploading[slot] = v
	}
	if img := s.images[model.SlotStart]; img != nil {
		st.Start = &Image{URL: img.URL, Name: img.Name}
	}
	if img := s.images[model.SlotEnd]; img != nil {
		st.End = &Image{URL: img.URL, Name: img.Name}
	}
	return st
}
