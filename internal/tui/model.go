package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/glabrego/itmonitor-cli/internal/app"
	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
	article "github.com/glabrego/itmonitor-cli/internal/render/article"
	tuiactions "github.com/glabrego/itmonitor-cli/internal/tui/actions"
	"github.com/glabrego/itmonitor-cli/internal/tui/panel"
	"github.com/glabrego/itmonitor-cli/internal/tui/platform"
	tuistate "github.com/glabrego/itmonitor-cli/internal/tui/state"
	tuitheme "github.com/glabrego/itmonitor-cli/internal/tui/theme"
	"github.com/glabrego/itmonitor-cli/internal/tui/view"
)

const appTitle = "IT Monitoring"

type clearStatusMsg struct {
	id int
}

type Options struct {
	// RefreshInterval is the period of the background reload. Zero disables it.
	RefreshInterval time.Duration
	// DeepLink is an entry id to open once the first load succeeds.
	DeepLink string
}

// Model drives the feed state manager from key presses and load results.
// Update is the only place the manager is mutated.
type Model struct {
	service tuiactions.Service
	state   *feedstate.Manager
	theme   tuitheme.Theme

	entries       []itmonitor.Entry
	categoryNames map[string]string
	cursor        int
	selectedID    string
	inDetail      bool
	detailTop     int
	showHelp      bool
	showPreview   bool

	inPanel           bool
	panelCursor       int
	collapsedSections map[string]bool

	width           int
	height          int
	fetching        bool
	online          bool
	hasStatus       bool
	stats           itmonitor.Status
	lastRefresh     time.Time
	refreshInterval time.Duration
	deepLink        string
	status          string
	statusID        int
	err             error

	cacheLoadDuration   time.Duration
	cacheLoadedEntries  int
	initialLoadDuration time.Duration
	initialLoadDone     bool
	initialLoadFailed   bool

	openURLFn func(string) error
	copyURLFn func(string) error
	nowFn     func() time.Time
}

func NewModel(service tuiactions.Service, manager *feedstate.Manager, opts Options) Model {
	m := Model{
		service:           service,
		state:             manager,
		theme:             tuitheme.Default(),
		categoryNames:     make(map[string]string),
		collapsedSections: make(map[string]bool),
		online:            true,
		fetching:          service != nil,
		refreshInterval:   opts.RefreshInterval,
		deepLink:          strings.TrimSpace(opts.DeepLink),
		openURLFn:         platform.OpenURLInBrowser,
		copyURLFn:         platform.CopyURLToClipboard,
		nowFn:             time.Now,
	}
	m.setCategoryNames(manager.Categories())
	m.applyFilter()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.service == nil {
		return m.titleCmd()
	}
	return tea.Batch(
		m.titleCmd(),
		tuiactions.LoadAllCmd(m.service, tuiactions.SourceInit),
		tuiactions.TickCmd(m.refreshInterval),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tuiactions.LoadResultMsg:
		return m.handleLoadResult(msg)
	case tuiactions.TickMsg:
		next := tuiactions.TickCmd(m.refreshInterval)
		if m.service == nil || m.fetching {
			return m, next
		}
		m.fetching = true
		return m, tea.Batch(next, tuiactions.ReloadCmd(m.service, tuiactions.SourceTick))
	case tuiactions.OpenURLSuccessMsg:
		m.err = nil
		return m, m.setStatus(msg.Status, 3*time.Second)
	case tuiactions.OpenURLErrorMsg:
		m.err = nil
		return m, m.setStatus(msg.Err.Error(), 4*time.Second)
	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if key == "esc" {
			m.showHelp = false
		}
		return m, nil
	}
	if m.inPanel {
		return m.handlePanelKey(key)
	}
	if m.inDetail {
		return m.handleDetailKey(key)
	}
	return m.handleListKey(key)
}

func (m Model) handleListKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.moveCursorBy(-1)
	case "down", "j":
		m.moveCursorBy(1)
	case "pgup", "ctrl+b":
		m.moveCursorBy(-m.listPageStep())
	case "pgdown", "ctrl+f":
		m.moveCursorBy(m.listPageStep())
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = tuistate.ClampCursor(len(m.entries)-1, len(m.entries))
	case "enter":
		return m.openDetail()
	case "m":
		return m.markCurrentRead()
	case "A":
		return m.markAllVisibleRead()
	case "p":
		m.showPreview = !m.showPreview
		if m.showPreview {
			return m, m.setStatus("Previews: on", 2*time.Second)
		}
		return m, m.setStatus("Previews: off", 2*time.Second)
	case "f":
		m.inPanel = true
		m.panelCursor = panel.FirstOptionRow(m.panelRows())
	case "r":
		return m.startLoad(tuiactions.SourceManual)
	case "F":
		return m.startLoad(tuiactions.SourceForce)
	case "o":
		return m.openCurrentURL()
	case "y":
		return m.copyCurrentURL()
	}
	return m, nil
}

func (m Model) handleDetailKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "backspace":
		m.inDetail = false
		m.detailTop = 0
		m.selectedID = ""
	case "up", "k":
		if m.detailTop > 0 {
			m.detailTop--
		}
	case "down", "j":
		entry, ok := m.currentEntry()
		if !ok {
			return m, nil
		}
		if m.detailTop < view.DetailMaxTop(len(m.detailLines(entry)), m.detailBodyHeight()) {
			m.detailTop++
		}
	case "[":
		if m.cursor > 0 {
			m.cursor--
			return m.openDetail()
		}
	case "]":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
			return m.openDetail()
		}
	case "o":
		return m.openCurrentURL()
	case "y":
		return m.copyCurrentURL()
	case "r":
		return m.startLoad(tuiactions.SourceManual)
	}
	return m, nil
}

func (m Model) handlePanelKey(key string) (tea.Model, tea.Cmd) {
	rows := m.panelRows()
	switch key {
	case "esc", "f":
		m.inPanel = false
	case "up", "k":
		m.panelCursor = tuistate.StepPanelCursor(rows, m.panelCursor, -1)
	case "down", "j":
		m.panelCursor = tuistate.StepPanelCursor(rows, m.panelCursor, 1)
	case " ", "space", "enter":
		return m.togglePanelRow(rows)
	}
	return m, nil
}

func (m Model) togglePanelRow(rows []panel.Row) (tea.Model, tea.Cmd) {
	if len(rows) == 0 {
		return m, nil
	}
	m.panelCursor = tuistate.ClampCursor(m.panelCursor, len(rows))
	row := rows[m.panelCursor]
	anchorID := m.currentEntryID()

	var err error
	switch row.Kind {
	case panel.RowSection:
		m.collapsedSections[row.Label] = !m.collapsedSections[row.Label]
		m.panelCursor = max(0, panel.CursorForKey(m.panelRows(), panel.RowSection, row.Label))
		return m, nil
	case panel.RowCategory:
		if m.categoryFilterOpen() {
			return m, m.setStatus("Categories are still loading", 3*time.Second)
		}
		err = m.state.SetCategoryFilter(row.Key, !row.Checked)
	case panel.RowType:
		err = m.state.SetTypeFilter(row.Key, !row.Checked)
	}

	m.applyFilter()
	m.restoreSelection(anchorID)
	cmds := []tea.Cmd{m.titleCmd()}
	if err != nil {
		m.err = err
		cmds = append(cmds, m.setStatus("Could not save filters", 4*time.Second))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) startLoad(source string) (tea.Model, tea.Cmd) {
	if m.service == nil {
		return m, nil
	}
	if m.fetching {
		return m, m.setStatus("Refresh already in progress", 3*time.Second)
	}
	m.fetching = true
	m.status = ""
	m.err = nil
	if source == tuiactions.SourceForce {
		return m, tuiactions.ForceRefreshCmd(m.service)
	}
	return m, tuiactions.LoadAllCmd(m.service, source)
}

func (m Model) handleLoadResult(msg tuiactions.LoadResultMsg) (tea.Model, tea.Cmd) {
	anchorID := m.currentEntryID()
	snap := msg.Snapshot
	m.fetching = false
	cmds := make([]tea.Cmd, 0, 4)
	m.err = nil

	fresh, err := app.Apply(m.state, snap, true)
	if err != nil {
		m.err = err
	}
	if snap.CategoriesFetched {
		m.setCategoryNames(snap.Categories)
	}
	if snap.StatusFetched {
		m.stats = snap.Status
		m.hasStatus = true
	}
	if snap.EntriesFetched {
		m.lastRefresh = m.nowFn()
		switch {
		case fresh > 0:
			cmds = append(cmds, m.setStatus(fmt.Sprintf("%d new since last visit", fresh), 4*time.Second))
		case msg.Err == nil && (msg.Source == tuiactions.SourceManual || msg.Source == tuiactions.SourceForce):
			cmds = append(cmds, m.setStatus("Data refreshed", 3*time.Second))
		}
	}
	m.applyFilter()
	m.restoreSelection(anchorID)

	fetchedAny := snap.StatusFetched || snap.CategoriesFetched || snap.EntriesFetched
	// A rejected force-fetch says nothing about the read endpoints.
	if msg.Source != tuiactions.SourceForce || fetchedAny {
		m.online = msg.Err == nil || fetchedAny
	}
	if msg.Source == tuiactions.SourceInit {
		m.initialLoadDuration = msg.Duration
		m.initialLoadDone = true
		m.initialLoadFailed = msg.Err != nil
	}
	if msg.Err != nil {
		log.WithError(msg.Err).WithField("source", msg.Source).Warn("load finished with errors")
		m.err = msg.Err
		text := "Could not reach the server"
		switch {
		case msg.Source == tuiactions.SourceForce && !fetchedAny:
			text = "Force refresh failed"
		case len(m.entries) > 0 && !snap.EntriesFetched:
			text = "Could not reach the server, showing saved entries"
		}
		cmds = append(cmds, m.setStatus(text, 5*time.Second))
	}

	if m.deepLink != "" && snap.EntriesFetched {
		cmds = append(cmds, m.applyDeepLink())
	}
	cmds = append(cmds, m.titleCmd())
	return m, tea.Batch(cmds...)
}

func (m *Model) applyDeepLink() tea.Cmd {
	id := m.deepLink
	m.deepLink = ""
	idx := tuistate.EntryIndexByID(m.entries, id)
	if idx < 0 {
		if _, ok := m.state.FindEntry(id); ok {
			return m.setStatus(fmt.Sprintf("Article %s is hidden by the current filter", id), 4*time.Second)
		}
		return m.setStatus(fmt.Sprintf("Article %s not found", id), 4*time.Second)
	}
	m.cursor = idx
	m.selectedID = id
	m.inDetail = true
	m.inPanel = false
	m.showHelp = false
	m.detailTop = 0
	return m.markRead(id)
}

func (m Model) openDetail() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	m.selectedID = entry.ID
	m.inDetail = true
	m.detailTop = 0
	readCmd := m.markRead(entry.ID)
	return m, tea.Batch(readCmd, m.titleCmd())
}

func (m Model) markCurrentRead() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	if m.state.IsRead(entry.ID) {
		return m, m.setStatus("Already read", 2*time.Second)
	}
	if cmd := m.markRead(entry.ID); cmd != nil {
		return m, tea.Batch(cmd, m.titleCmd())
	}
	statusCmd := m.setStatus("Marked as read", 2*time.Second)
	return m, tea.Batch(statusCmd, m.titleCmd())
}

func (m Model) markAllVisibleRead() (tea.Model, tea.Cmd) {
	n, err := m.state.MarkAllVisibleRead()
	if err != nil {
		m.err = err
		statusCmd := m.setStatus("Could not save read state", 4*time.Second)
		return m, tea.Batch(statusCmd, m.titleCmd())
	}
	if n == 0 {
		return m, m.setStatus("Nothing to mark", 2*time.Second)
	}
	statusCmd := m.setStatus(fmt.Sprintf("Marked %d entries as read", n), 3*time.Second)
	return m, tea.Batch(statusCmd, m.titleCmd())
}

// markRead returns a status command only when persisting failed.
func (m *Model) markRead(id string) tea.Cmd {
	if err := m.state.MarkRead(id); err != nil {
		m.err = err
		return m.setStatus("Could not save read state", 4*time.Second)
	}
	return nil
}

func (m Model) openCurrentURL() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	validURL, err := platform.ValidateEntryURL(entry.Link)
	if err != nil {
		m.err = nil
		return m, m.setStatus(err.Error(), 4*time.Second)
	}
	readCmd := m.markRead(entry.ID)
	return m, tea.Batch(readCmd, m.titleCmd(), tuiactions.OpenURLCmd(entry.ID, validURL, m.openURLFn, m.copyURLFn))
}

func (m Model) copyCurrentURL() (tea.Model, tea.Cmd) {
	entry, ok := m.currentEntry()
	if !ok {
		return m, nil
	}
	validURL, err := platform.ValidateEntryURL(entry.Link)
	if err != nil {
		m.err = nil
		return m, m.setStatus(err.Error(), 4*time.Second)
	}
	return m, tuiactions.CopyURLCmd(validURL, m.copyURLFn)
}

func (m *Model) setStatus(text string, ttl time.Duration) tea.Cmd {
	m.status = text
	m.statusID++
	return clearStatusCmd(m.statusID, ttl)
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m Model) titleCmd() tea.Cmd {
	return tea.SetWindowTitle(m.state.TitleWithCount(appTitle))
}

func (m *Model) applyFilter() {
	m.entries = m.state.FilteredEntries()
}

func (m *Model) setCategoryNames(categories []itmonitor.Category) {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.Key] = c.Name
	}
	m.categoryNames = names
}

// categoryFilterOpen reports whether the category filter is still the
// unnormalized empty set, which lets every category through.
func (m Model) categoryFilterOpen() bool {
	return !m.state.Normalized() && len(m.state.Filters().Categories) == 0
}

func (m Model) categoryLabel(entry itmonitor.Entry) string {
	key := m.state.ResolveCategoryKey(entry)
	if name, ok := m.categoryNames[key]; ok {
		return name
	}
	if entry.Category != "" {
		return entry.Category
	}
	return key
}

func (m Model) currentEntry() (itmonitor.Entry, bool) {
	if len(m.entries) == 0 || m.cursor < 0 || m.cursor >= len(m.entries) {
		return itmonitor.Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (m Model) currentEntryID() string {
	if m.selectedID != "" {
		return m.selectedID
	}
	entry, ok := m.currentEntry()
	if !ok {
		return ""
	}
	return entry.ID
}

func (m *Model) restoreSelection(anchorID string) {
	if len(m.entries) == 0 {
		m.cursor = 0
		m.selectedID = ""
		m.inDetail = false
		m.detailTop = 0
		return
	}
	if m.selectedID != "" && tuistate.EntryIndexByID(m.entries, anchorID) < 0 {
		m.selectedID = ""
		m.inDetail = false
		m.detailTop = 0
	}
	m.cursor = tuistate.AnchoredCursor(m.entries, anchorID, m.cursor)
}

func (m *Model) moveCursorBy(delta int) {
	m.cursor = tuistate.ClampCursor(m.cursor+delta, len(m.entries))
}

func (m Model) listPageStep() int {
	return tuistate.PageStep(m.height, m.status != "")
}

func (m Model) panelRows() []panel.Row {
	open := m.categoryFilterOpen()
	return panel.BuildRows(panel.Input{
		Categories:  m.state.Categories(),
		Types:       itmonitor.FeedTypes,
		Entries:     m.state.Entries(),
		CategoryKey: m.state.ResolveCategoryKey,
		IsRead:      m.state.IsRead,
		CategoryIncluded: func(key string) bool {
			return open || m.state.CategoryIncluded(key)
		},
		TypeIncluded:      m.state.TypeIncluded,
		CollapsedSections: m.collapsedSections,
	})
}

func (m Model) contentWidth() int {
	if m.width > 0 {
		return m.width - 1
	}
	return 100
}

func (m Model) listBodyHeight() int {
	if m.height <= 0 {
		return 0
	}
	h := max(3, m.height-7)
	if m.showPreview {
		h = max(1, h/2)
	}
	return h
}

func (m Model) detailBodyHeight() int {
	if m.height > 0 {
		usedByChrome := 7
		if m.status != "" {
			usedByChrome++
		}
		if h := m.height - usedByChrome; h > 3 {
			return h
		}
	}
	return 16
}

func (m Model) detailLines(entry itmonitor.Entry) []string {
	width := m.contentWidth()
	margin := 0
	if width > 60 {
		margin = 2
	}
	meta := view.DetailMeta{
		CategoryLabel: m.categoryLabel(entry),
		TypeLabel:     panel.TypeLabel(entry.FeedType),
		Read:          m.state.IsRead(entry.ID),
	}
	return view.DetailLines(entry, meta, width-2*margin, margin, article.DefaultOptions, article.WrapText)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(view.Header(view.HeaderParams{
		Title:     appTitle,
		Unread:    m.state.UnreadCount(),
		Online:    m.online,
		Status:    m.stats,
		HasStatus: m.hasStatus,
	}, m.theme))
	b.WriteString("\n")
	b.WriteString(m.theme.MetaLabel.Render(view.Toolbar(m.inDetail, m.inPanel)))
	b.WriteString("\n\n")

	switch {
	case m.showHelp:
		b.WriteString("Help (? to close)\n\n")
		b.WriteString(strings.Join(view.HelpLines(m.theme), "\n"))
		b.WriteString("\n")
	case m.inPanel:
		b.WriteString(m.panelView())
	case m.inDetail:
		b.WriteString(m.detailView())
	default:
		b.WriteString(m.listView())
	}

	b.WriteString("\n")
	b.WriteString(m.messagePanel())
	b.WriteString("\n")
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

func (m Model) listView() string {
	if m.fetching && len(m.entries) == 0 {
		return "Loading entries...\n"
	}
	empty := "No entries match the current filters. Press f to adjust them."
	if len(m.state.Entries()) == 0 {
		empty = "No entries available."
	}
	now := m.nowFn()
	width := m.contentWidth()
	start, end := tuistate.CenteredWindow(len(m.entries), m.cursor, m.listBodyHeight())

	in := view.ListRenderInput{
		Count:     len(m.entries),
		Start:     start,
		End:       end,
		Cursor:    m.cursor,
		EmptyText: empty,
		RenderEntryLine: func(i int, active bool) string {
			entry := m.entries[i]
			return view.RenderEntryLine(view.EntryLineParams{
				Entry:         entry,
				CategoryLabel: m.categoryLabel(entry),
				Now:           now,
				Read:          m.state.IsRead(entry.ID),
				Active:        active,
				Width:         width,
			}, m.theme)
		},
	}
	if m.showPreview {
		in.RenderPreviewLine = func(i int) string {
			return view.RenderPreviewLine(article.Preview(m.entries[i].Summary, article.PreviewLength), width, m.theme)
		}
	}
	return view.RenderListBody(in)
}

func (m Model) detailView() string {
	entry, ok := m.currentEntry()
	if !ok {
		return "No entry selected.\n"
	}
	return view.RenderDetailLines(m.detailLines(entry), m.detailTop, m.detailBodyHeight())
}

func (m Model) panelView() string {
	rows := m.panelRows()
	width := min(m.contentWidth(), 60)
	var b strings.Builder
	b.WriteString(m.theme.Section.Render("Filters"))
	b.WriteString("\n")
	for i, row := range rows {
		b.WriteString(view.RenderPanelRow(row, m.collapsedSections[row.Label], i == m.panelCursor, width, m.theme))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) messagePanel() string {
	warning := ""
	if m.err != nil {
		warning = m.err.Error()
	}
	line := view.StatusLine(m.fetching, m.err != nil, m.status, warning, m.theme)
	return line + " | " + m.theme.MetaLabel.Render(m.startupMetrics())
}

func (m Model) startupMetrics() string {
	cachePart := "cache n/a"
	if m.cacheLoadDuration > 0 || m.cacheLoadedEntries > 0 {
		cachePart = fmt.Sprintf("cache %dms (%d entries)", m.cacheLoadDuration.Milliseconds(), m.cacheLoadedEntries)
	}
	loadPart := "initial load pending"
	if m.initialLoadDone {
		if m.initialLoadFailed {
			loadPart = fmt.Sprintf("initial load failed in %dms", m.initialLoadDuration.Milliseconds())
		} else {
			loadPart = fmt.Sprintf("initial load %dms", m.initialLoadDuration.Milliseconds())
		}
	}
	return cachePart + ", " + loadPart
}

func (m Model) footer() string {
	filters := m.state.Filters()
	categoriesTotal := len(m.categoryNames)
	categoriesOn := len(filters.Categories)
	if m.categoryFilterOpen() {
		categoriesOn = categoriesTotal
	}
	return view.Footer(view.FooterParams{
		CategoriesOn:    categoriesOn,
		CategoriesTotal: categoriesTotal,
		Types:           filters.Types,
		Shown:           len(m.entries),
		Total:           len(m.state.Entries()),
		LastRefresh:     m.lastRefresh,
		Now:             m.nowFn(),
	}, m.theme)
}

// SetStartupCacheStats records how the entry cache load went before the
// program started, shown in the message panel.
func (m *Model) SetStartupCacheStats(duration time.Duration, entries int) {
	m.cacheLoadDuration = duration
	m.cacheLoadedEntries = entries
}
