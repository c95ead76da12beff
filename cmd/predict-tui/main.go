package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"predictboard/internal/board"
	"predictboard/internal/config"
	"predictboard/internal/dashboard"
	"predictboard/internal/domain"
	"predictboard/internal/poll"
	"predictboard/internal/predictapi"
	"predictboard/internal/store"
	"predictboard/internal/util"
)

// Messages.
type tickMsg time.Time
type stateMsg board.State
type boardClosedMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForState blocks on the board observer channel.
func waitForState(ch <-chan board.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return boardClosedMsg{}
		}
		return stateMsg(s)
	}
}

// Model.
type model struct {
	board  *board.Board
	states <-chan board.State
	state  board.State
	logger *slog.Logger

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int
	now      time.Time

	// notice is local input feedback, e.g. a rejected ticker.
	notice string
}

const (
	headerH = 4
	footerH = 1
)

func initialModel(b *board.Board, states <-chan board.State, logger *slog.Logger) model {
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Prompt = "Ticker › "
	ti.Placeholder = "AAPL"
	ti.CharLimit = 10
	ti.Width = 12
	ti.ShowSuggestions = true
	ti.SetSuggestions(dashboard.Tickers())
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		board:   b,
		states:  states,
		state:   b.Snapshot(),
		logger:  logger,
		input:   ti,
		spinner: sp,
		now:     time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.states), tickCmd(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "t":
			m.board.ToggleTheme()
			return m, nil
		case "esc":
			m.dismiss()
			return m, nil
		case "/", "i", "enter":
			return m, m.input.Focus()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - headerH - footerH
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = board.State(msg)
		m.refresh()
		return m, waitForState(m.states)

	case boardClosedMsg:
		return m, tea.Quit

	case tickMsg:
		m.now = time.Time(msg)
		m.refresh()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// updateInput handles keys while the ticker input has focus.
func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.submit()
		return m, nil
	case "esc":
		if m.state.Error != "" || m.state.QuotesError != "" || m.notice != "" {
			m.dismiss()
		} else {
			m.input.Blur()
		}
		return m, nil
	case "ctrl+t":
		m.board.ToggleTheme()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the input to the board. Enter is ignored while loading.
func (m *model) submit() {
	if m.state.Loading {
		return
	}
	ticker, err := m.board.Submit(m.input.Value())
	switch {
	case err == nil:
		m.notice = ""
		m.input.SetValue(ticker)
		m.input.CursorEnd()
	case domain.IsValidation(err):
		m.notice = "Enter a valid ticker symbol."
	case errors.Is(err, board.ErrBusy):
	default:
		m.notice = err.Error()
		m.logger.Warn("submit failed", "error", err)
	}
	m.refresh()
}

func (m *model) dismiss() {
	m.notice = ""
	m.board.DismissError()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderContent())
}

func main() {
	ticker := flag.String("ticker", "", "ticker to predict on start")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := util.OpenLogFile(cfg.Logging.File, "predict-tui")
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logFile)
	util.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading timezone: %v\n", err)
		os.Exit(1)
	}
	policy, err := poll.ParsePolicy(cfg.Dashboard.Ordering)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	stores, err := store.Open(cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if pruners := stores.Pruners(); len(pruners) > 0 {
		ret := store.NewRetention(ctx, cfg.Storage.RetentionDays, logger, pruners...)
		if err := ret.Register(cfg.Storage.PruneSchedule); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		ret.Start()
		defer ret.Stop()
	}

	client := predictapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	ctrl := poll.NewController(ctx, poll.Options{Policy: policy, Logger: logger})
	defer ctrl.Close()

	b := board.New(client, ctrl, board.Options{
		Tickers:         cfg.Dashboard.Tickers,
		Window:          cfg.Dashboard.Window,
		PredictInterval: cfg.Dashboard.PredictInterval,
		QuotesInterval:  cfg.Dashboard.QuotesInterval,
		OffsetDays:      cfg.Dashboard.PredictionOffsetDays,
		Location:        loc,
		Theme:           board.Theme(cfg.Dashboard.Theme),
		Predictions:     stores.Predictions,
		Quotes:          stores.Quotes,
		Logger:          logger,
	})
	defer b.Close()

	logger.Info("starting predict-tui", "api", client.BaseURL(), "tickers", strings.Join(b.Tickers(), ","), "ordering", policy)
	b.Start(ctx)

	id, states := b.Subscribe()
	defer b.Unsubscribe(id)

	m := initialModel(b, states, logger)
	if *ticker != "" {
		if t, err := b.Submit(*ticker); err != nil {
			m.notice = "Enter a valid ticker symbol."
		} else {
			m.input.SetValue(t)
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
