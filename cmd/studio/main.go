package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"memory-transition-server/modules/common/logger"
	"memory-transition-server/modules/common/model"
	"memory-transition-server/modules/common/utils"
	"memory-transition-server/modules/studio"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)
)

type phase string

const (
	phaseUploading  phase = "uploading"
	phaseGenerating phase = "generating"
	phaseDone       phase = "done"
	phaseFailed     phase = "failed"
)

type uploadDoneMsg struct {
	slot model.Slot
	err  error
}

type generateDoneMsg struct {
	err error
}

type tickMsg time.Time

type cliModel struct {
	ctx     context.Context
	session *studio.Session
	files   map[model.Slot]studio.File

	phase     phase
	pending   int
	started   time.Time
	lastError string
	err       error
}

func uploadCmd(ctx context.Context, s *studio.Session, slot model.Slot, file studio.File) tea.Cmd {
	return func() tea.Msg {
		return uploadDoneMsg{slot: slot, err: s.SelectFile(ctx, slot, file)}
	}
}

func generateCmd(ctx context.Context, s *studio.Session, retry bool) tea.Cmd {
	return func() tea.Msg {
		if retry {
			return generateDoneMsg{err: s.Retry(ctx)}
		}
		return generateDoneMsg{err: s.Generate(ctx)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m cliModel) Init() tea.Cmd {
	return tea.Batch(
		uploadCmd(m.ctx, m.session, model.SlotStart, m.files[model.SlotStart]),
		uploadCmd(m.ctx, m.session, model.SlotEnd, m.files[model.SlotEnd]),
		tickCmd(),
	)
}

func (m cliModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case tickMsg:
		if m.phase == phaseDone || m.phase == phaseFailed {
			return m, nil
		}
		return m, tickCmd()

	case uploadDoneMsg:
		if msg.err != nil {
			m.phase = phaseFailed
			m.err = fmt.Errorf("%s image: %w", msg.slot, msg.err)
			return m, tea.Quit
		}
		m.pending--
		if m.pending > 0 {
			return m, nil
		}
		m.phase = phaseGenerating
		m.started = time.Now()
		return m, generateCmd(m.ctx, m.session, false)

	case generateDoneMsg:
		st := m.session.State()
		if msg.err == nil {
			m.phase = phaseDone
			return m, tea.Quit
		}
		if errors.Is(msg.err, studio.ErrRetriesExhausted) || errors.Is(msg.err, context.Canceled) {
			m.phase = phaseFailed
			m.lastError = st.Error
			return m, tea.Quit
		}
		// 실패 - 재시도 예산 안에서 자동 재시도
		m.lastError = st.Error
		m.started = time.Now()
		return m, generateCmd(m.ctx, m.session, true)
	}

	return m, nil
}

func (m cliModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🎞️  Memory Transition Studio"))
	b.WriteString("\n")

	st := m.session.State()
	for _, slot := range []model.Slot{model.SlotStart, model.SlotEnd} {
		img := st.Start
		if slot == model.SlotEnd {
			img = st.End
		}
		switch {
		case img != nil:
			b.WriteString(statusStyle.Render(fmt.Sprintf("✅ %-5s %s", slot, img.URL)))
		case st.Uploading[slot]:
			b.WriteString(infoStyle.Render(fmt.Sprintf("📤 %-5s uploading %s...", slot, m.files[slot].Name)))
		default:
			b.WriteString(infoStyle.Render(fmt.Sprintf("⏳ %-5s waiting", slot)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.phase {
	case phaseGenerating:
		b.WriteString(statusStyle.Render("🎬 " + studio.LoadingMessage(time.Since(m.started))))
		if st.RetryCount > 0 {
			b.WriteString(infoStyle.Render(fmt.Sprintf("  (retry %d/%d)", st.RetryCount, studio.MaxRetries)))
		}
		if m.lastError != "" {
			b.WriteString("\n" + errorStyle.Render("⚠️  "+m.lastError))
		}
	case phaseDone:
		b.WriteString(boxStyle.Render("✅ Your memory is ready\n\n" + st.VideoURL))
	case phaseFailed:
		msg := m.lastError
		if m.err != nil {
			msg = m.err.Error()
		}
		b.WriteString(errorStyle.Render("❌ " + msg))
	}
	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("Press 'q' or Ctrl+C to quit"))
	b.WriteString("\n")
	return b.String()
}

func readImage(path string) (studio.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return studio.File{}, err
	}
	return studio.File{
		Name:        filepath.Base(path),
		Path:        path,
		ContentType: utils.NormalizeContentType(http.DetectContentType(data)),
		Data:        data,
	}, nil
}

// openPreview keeps the source file open for as long as the session shows it.
func openPreview(file studio.File) (io.Closer, error) {
	return os.Open(file.Path)
}

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", "http://localhost:8080", "Memory transition server URL")
	startPath := flag.String("start", "", "Image of where it begins")
	endPath := flag.String("end", "", "Image of where it ends")
	prompt := flag.String("prompt", "", "Custom prompt (defaults to the hidden-cut drone prompt)")
	flag.Parse()

	// TUI 와 겹치지 않게 로그는 stderr 경고만
	logger.Configure(os.Stderr, "warn", "console")

	if *startPath == "" || *endPath == "" {
		fmt.Println(errorStyle.Render("❌ Both -start and -end images are required"))
		flag.Usage()
		os.Exit(2)
	}

	files := make(map[model.Slot]studio.File, 2)
	for slot, path := range map[model.Slot]string{model.SlotStart: *startPath, model.SlotEnd: *endPath} {
		f, err := readImage(path)
		if err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("❌ Failed to read %s: %v", path, err)))
			os.Exit(1)
		}
		files[slot] = f
	}

	session := studio.NewSession(studio.NewHTTPClient(*serverURL, nil), studio.WithPreview(openPreview))
	if *prompt != "" {
		session.SetPrompt(*prompt)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := cliModel{
		ctx:     ctx,
		session: session,
		files:   files,
		phase:   phaseUploading,
		pending: len(files),
	}
	program := tea.NewProgram(m)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		program.Quit()
	}()

	final, err := program.Run()
	cancel()
	os.Exit(finish(session, final, err))
}

// finish releases the session's previews and returns the process exit code.
func finish(session *studio.Session, final tea.Model, runErr error) int {
	defer session.Close()

	if runErr != nil {
		fmt.Printf("Error running program: %v\n", runErr)
		return 1
	}
	if fm, ok := final.(cliModel); ok && fm.phase != phaseDone {
		return 1
	}
	return 0
}
