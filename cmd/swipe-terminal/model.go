package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cuongbtq/pi-work/internal/api/domain"
	"github.com/cuongbtq/pi-work/internal/dispatcher"
	"github.com/cuongbtq/pi-work/internal/payment"
	"github.com/cuongbtq/pi-work/internal/swipe"
)

const (
	cardWidth = 52
	// maxCardShift caps how far, in cells, a dragged card moves sideways
	maxCardShift = 12
)

type model struct {
	ctx        context.Context
	dispatcher *dispatcher.Dispatcher
	gesture    swipe.Interpreter
	feedback   swipe.Feedback
	spinner    spinner.Model
	styles     styles
	logger     *slog.Logger

	// unitsPerCell converts terminal cells into gesture units
	unitsPerCell float64
	topJobID     string
	width        int
}

func newModel(ctx context.Context, d *dispatcher.Dispatcher, unitsPerCell float64, logger *slog.Logger) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Points
	st := newStyles(defaultPalette)
	sp.Style = st.spinner

	return &model{
		ctx:          ctx,
		dispatcher:   d,
		feedback:     swipe.FeedbackFor(swipe.Point{}),
		spinner:      sp,
		styles:       st,
		logger:       logger,
		unitsPerCell: unitsPerCell,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, effectsCmd(m.ctx, m.dispatcher.Init()))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.handleKey(msg)

	case tea.MouseMsg:
		cmd = m.handleMouse(msg)

	case tea.BlurMsg:
		// the pointer left the window: same as letting go of the card
		cmd = m.decide(m.gesture.Leave())

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)

	case dispatcher.Event:
		cmd = effectsCmd(m.ctx, m.dispatcher.Handle(msg))
	}

	m.syncTopCard()
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return tea.Quit
	case "left", "h":
		return m.decide(swipe.Reject)
	case "right", "l":
		return m.decide(swipe.Accept)
	case "tab":
		return m.stepCategory(1)
	case "shift+tab":
		return m.stepCategory(-1)
	case "r":
		return m.dispatchErr(m.dispatcher.Refresh())
	}
	return nil
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	p := m.point(msg.X, msg.Y)

	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		areas, ok := m.hitAreas()
		if !ok || m.gesture.Dragging() {
			return nil
		}
		switch {
		case areas.card.contains(msg.X, msg.Y):
			m.gesture.Press(p)
			m.feedback = m.gesture.Feedback()
		case areas.reject.contains(msg.X, msg.Y):
			return m.decide(swipe.Reject)
		case areas.accept.contains(msg.X, msg.Y):
			return m.decide(swipe.Accept)
		}
	case msg.Action == tea.MouseActionMotion:
		if m.gesture.Dragging() {
			m.feedback = m.gesture.Move(p)
		}
	case msg.Action == tea.MouseActionRelease:
		if m.gesture.Dragging() {
			m.gesture.Move(p)
		}
		return m.decide(m.gesture.Release())
	}
	return nil
}

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// cardAreas is where the resting card and its button labels sit on screen
type cardAreas struct {
	card, reject, accept rect
}

// hitAreas locates the card and its buttons; false when no card is shown
func (m *model) hitAreas() (cardAreas, bool) {
	state := m.dispatcher.Snapshot()
	job, ok := m.dispatcher.Current()
	if !ok || (state.Loading && len(state.Jobs) == 0) {
		return cardAreas{}, false
	}

	top := m.styles.app.GetPaddingTop() +
		lipgloss.Height(m.headerView(state)) +
		lipgloss.Height(m.categoriesView(state)) + 1
	left := m.styles.app.GetPaddingLeft() + maxCardShift

	card := m.styles.card.Render(m.cardLines(job, swipe.Feedback{}))
	cardH := lipgloss.Height(card)
	buttonsY := top + cardH + 1

	reject, gap, accept := m.buttonLabels()
	return cardAreas{
		card:   rect{x: left, y: top, w: lipgloss.Width(card), h: cardH},
		reject: rect{x: left, y: buttonsY, w: lipgloss.Width(reject), h: 1},
		accept: rect{x: left + lipgloss.Width(reject) + len(gap), y: buttonsY, w: lipgloss.Width(accept), h: 1},
	}, true
}

// point converts a terminal cell into gesture units
func (m *model) point(x, y int) swipe.Point {
	return swipe.Point{X: float64(x) * m.unitsPerCell, Y: float64(y) * m.unitsPerCell}
}

func (m *model) decide(decision swipe.Decision) tea.Cmd {
	m.feedback = m.gesture.Feedback()
	if decision == swipe.None {
		return nil
	}

	effects, err := m.dispatcher.Decide(decision)
	if err != nil {
		m.logger.Debug("Decision refused",
			slog.String("decision", decision.String()),
			slog.String("error", err.Error()),
		)
	}
	return effectsCmd(m.ctx, effects)
}

func (m *model) stepCategory(step int) tea.Cmd {
	state := m.dispatcher.Snapshot()
	if len(state.Categories) == 0 {
		return nil
	}

	idx := 0
	for i, c := range state.Categories {
		if c == state.Category {
			idx = i
			break
		}
	}
	idx = (idx + step + len(state.Categories)) % len(state.Categories)

	return m.dispatchErr(m.dispatcher.SetCategory(state.Categories[idx]))
}

func (m *model) dispatchErr(effects []dispatcher.Effect, err error) tea.Cmd {
	if err != nil {
		m.logger.Debug("Action refused", slog.String("error", err.Error()))
		return nil
	}
	return effectsCmd(m.ctx, effects)
}

// syncTopCard drops a drag in progress once the card under it changes
func (m *model) syncTopCard() {
	id := ""
	if job, ok := m.dispatcher.Current(); ok {
		id = job.ID
	}
	if id != m.topJobID {
		m.gesture.Cancel()
		m.feedback = m.gesture.Feedback()
		m.topJobID = id
	}
}

func (m *model) View() string {
	state := m.dispatcher.Snapshot()

	sections := []string{
		m.headerView(state),
		m.categoriesView(state),
		"",
	}

	switch {
	case state.Loading && len(state.Jobs) == 0:
		sections = append(sections, fmt.Sprintf("%s Loading jobs...", m.spinner.View()))
	case m.dispatcher.Exhausted():
		sections = append(sections, m.emptyView())
	default:
		job, _ := m.dispatcher.Current()
		sections = append(sections,
			m.cardView(job),
			"",
			m.buttonsView(),
			m.styles.inactive.Render(fmt.Sprintf("Job %d of %d", state.Cursor+1, len(state.Jobs))),
		)
	}

	if status := m.statusView(state); status != "" {
		sections = append(sections, "", status)
	}
	if state.Message != nil {
		sections = append(sections, "", m.messageView(state.Message))
	}

	sections = append(sections, "", m.styles.inactive.Render("drag the card or ←/→ to decide · tab category · r refresh · q quit"))

	return m.styles.app.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *model) headerView(state dispatcher.State) string {
	wallet := m.styles.inactive.Render("demo mode")
	if state.Session != nil {
		wallet = m.styles.success.Render("@" + state.Session.Username)
	}
	return m.styles.header.Render("π Pi Work") + "  " + wallet
}

func (m *model) categoriesView(state dispatcher.State) string {
	parts := make([]string, 0, len(state.Categories))
	for _, c := range state.Categories {
		if c == state.Category {
			parts = append(parts, m.styles.selected.Render(c))
		} else {
			parts = append(parts, m.styles.category.Render(c))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *model) cardView(job domain.Job) string {
	fb := m.feedback

	style := m.styles.card
	switch {
	case fb.AcceptActive:
		style = m.styles.cardAccept
	case fb.RejectActive:
		style = m.styles.cardReject
	}
	if fb.Opacity < 0.8 {
		style = style.Faint(true)
	}

	card := style.Render(m.cardLines(job, fb))

	shift := int(math.Round(fb.Offset.X / m.unitsPerCell))
	shift = max(-maxCardShift, min(maxCardShift, shift))
	// the card rests in the middle so it can move both ways
	return lipgloss.NewStyle().PaddingLeft(maxCardShift + shift).Render(card)
}

func (m *model) cardLines(job domain.Job, fb swipe.Feedback) string {
	indicator := ""
	switch {
	case fb.AcceptActive:
		indicator = m.styles.accept.Render("ACCEPT ✓")
	case fb.RejectActive:
		indicator = m.styles.reject.Render("✗ REJECT")
	}

	lines := []string{
		m.styles.title.Render(job.Title),
		fmt.Sprintf("%s  %s", job.Employer, m.styles.label.Render(fmt.Sprintf("★ %.1f", job.EmployerRating))),
		"",
		m.styles.payment.Render(job.Payment.String() + " π"),
		fmt.Sprintf("%s %s", m.styles.label.Render("Location:"), job.Location),
		fmt.Sprintf("%s %s", m.styles.label.Render("Category:"), job.Category),
	}
	if !job.Deadline.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s", m.styles.label.Render("Deadline:"), job.Deadline.Format("Jan 2, 2006")))
	}
	if job.Description != "" {
		lines = append(lines, "", job.Description)
	}
	if indicator != "" {
		lines = append([]string{indicator, ""}, lines...)
	}
	return strings.Join(lines, "\n")
}

func (m *model) buttonLabels() (reject, gap, accept string) {
	reject = m.styles.reject.Render("[←] Reject")
	accept = m.styles.accept.Render("Accept [→]")
	gap = strings.Repeat(" ", max(cardWidth-lipgloss.Width(reject)-lipgloss.Width(accept), 2))
	return reject, gap, accept
}

func (m *model) buttonsView() string {
	reject, gap, accept := m.buttonLabels()
	return strings.Repeat(" ", maxCardShift) + reject + gap + accept
}

func (m *model) emptyView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render("No more jobs available"),
		m.styles.inactive.Render("Check back later for new opportunities!"),
		"",
		m.styles.info.Render("[r] Refresh"),
	)
}

func (m *model) statusView(state dispatcher.State) string {
	hs := state.Handshake
	switch {
	case hs.InFlight():
		return fmt.Sprintf("%s %s", m.spinner.View(), handshakeText(hs))
	case m.dispatcher.Pending():
		return fmt.Sprintf("%s Recording your decision...", m.spinner.View())
	case state.Loading:
		return fmt.Sprintf("%s Loading jobs...", m.spinner.View())
	}
	return ""
}

func handshakeText(hs *dispatcher.Handshake) string {
	switch hs.Phase {
	case payment.ReadyForApproval:
		return "Approving payment..."
	case payment.ReadyForCompletion:
		return "Completing payment..."
	default:
		return fmt.Sprintf("Waiting for wallet to pay %s π...", hs.Amount)
	}
}

func (m *model) messageView(msg *dispatcher.Message) string {
	switch msg.Kind {
	case dispatcher.MessageSuccess:
		return m.styles.success.Render("✓ " + msg.Text)
	case dispatcher.MessageError:
		if errors.Is(msg.Err, dispatcher.ErrHandshakeTimeout) {
			return m.styles.error.Render("⏱ " + msg.Text)
		}
		return m.styles.error.Render("⚠ " + msg.Text)
	default:
		return m.styles.info.Render(msg.Text)
	}
}
