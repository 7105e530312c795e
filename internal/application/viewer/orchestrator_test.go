package viewer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/penwyp/go-activity-monitor/internal/core/model"
	"github.com/penwyp/go-activity-monitor/internal/core/selection"
	"github.com/penwyp/go-activity-monitor/internal/presentation/display"
	"github.com/penwyp/go-activity-monitor/internal/presentation/interaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarker struct {
	closedAt []int64
}

func (m *fakeMarker) RecordClose(ctx context.Context, atSec int64) error {
	m.closedAt = append(m.closedAt, atSec)
	return nil
}

func newTestOrchestrator(t *testing.T, marker CloseRecorder, recordClose bool) (*Orchestrator, *bytes.Buffer) {
	t.Helper()
	s := newTestSession(t, sampleSource())
	o, err := NewOrchestrator(s, RunConfig{RecordClose: recordClose}, marker)
	require.NoError(t, err)

	var buf bytes.Buffer
	o.display = display.NewTerminalDisplayTo(&buf)
	return o, &buf
}

func char(r rune) interaction.KeyEvent {
	return interaction.KeyEvent{Key: r, Type: interaction.KeyChar}
}

func key(kt interaction.KeyType) interaction.KeyEvent {
	return interaction.KeyEvent{Type: kt}
}

func TestNewOrchestratorRequiresSession(t *testing.T) {
	_, err := NewOrchestrator(nil, RunConfig{}, nil)
	assert.Error(t, err)
}

func TestOrchestratorQuitKeys(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)

	assert.True(t, o.handleKeyboard(char('q')))
	assert.True(t, o.handleKeyboard(char(3)))
	assert.False(t, o.handleKeyboard(char('x')))
}

func TestOrchestratorHelpSwallowsKeys(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)
	before := o.session.Viewport()

	o.handleKeyboard(char('?'))
	require.True(t, o.showHelp)

	assert.False(t, o.handleKeyboard(char('h')))
	assert.Equal(t, before, o.session.Viewport())

	o.handleKeyboard(key(interaction.KeyEscape))
	assert.False(t, o.showHelp)
}

func TestOrchestratorPanAndZoom(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)

	o.handleKeyboard(key(interaction.KeyRight))
	start, _ := o.session.Viewport().Range()
	assert.InDelta(t, 1_125_000, start, 1e-6, "right looks later by an eighth of the width")

	o.handleKeyboard(char('h'))
	start, _ = o.session.Viewport().Range()
	assert.InDelta(t, 1_000_000, start, 1e-6)

	o.handleKeyboard(char('+'))
	assert.InDelta(t, 500, o.session.Viewport().MsPerPixel, 1e-9)
	o.handleKeyboard(key(interaction.KeyDown))
	assert.InDelta(t, 1000, o.session.Viewport().MsPerPixel, 1e-9)
}

func TestOrchestratorCursorClamps(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)
	require.Equal(t, 999, o.cursorPx)

	o.handleKeyboard(char('>'))
	assert.Equal(t, 999, o.cursorPx)

	o.handleKeyboard(char('<'))
	o.handleKeyboard(char(','))
	assert.Equal(t, 988, o.cursorPx)

	o.cursorPx = 3
	o.handleKeyboard(char('<'))
	assert.Equal(t, 0, o.cursorPx)
}

func TestOrchestratorDragSelection(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)
	o.cursorPx = 200

	o.handleKeyboard(char(' '))
	require.True(t, o.session.Dragging())
	for i := 0; i < 10; i++ {
		o.handleKeyboard(char('>'))
	}
	o.handleKeyboard(char(' '))

	assert.False(t, o.session.Dragging())
	assert.Equal(t, &model.TimeRange{StartMs: 1_200_500, EndMs: 1_300_500}, o.session.SelectionRange())

	o.handleKeyboard(key(interaction.KeyEscape))
	assert.Nil(t, o.session.SelectionRange())
	assert.Equal(t, "Selection cleared", o.status)
}

func TestOrchestratorEnterSelectsUnderCursor(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)

	o.handleKeyboard(key(interaction.KeyEnter))
	assert.Equal(t, selection.KindIDSet, o.session.Selection().Kind)
	assert.Equal(t, &model.TimeRange{StartMs: 1_800_000, EndMs: 2_000_000}, o.session.SelectionRange())
}

func TestOrchestratorAppRowToggle(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)

	o.handleKeyboard(char('2'))
	assert.Equal(t, "Selected browser", o.status)
	assert.Equal(t, &model.TimeRange{StartMs: 1_500_000, EndMs: 1_800_000}, o.session.SelectionRange())

	o.handleKeyboard(char('2'))
	assert.Equal(t, "Deselected browser", o.status)
	assert.Nil(t, o.session.SelectionRange())

	o.handleKeyboard(char('9'))
	assert.Nil(t, o.session.SelectionRange(), "rows past the table are ignored")

	t.Run("switching rows while selected", func(t *testing.T) {
		o.handleKeyboard(char('2'))
		o.handleKeyboard(char('1'))
		assert.Equal(t, "Selected editor", o.status)
		assert.Equal(t, &model.TimeRange{StartMs: 1_000_000, EndMs: 2_000_000}, o.session.SelectionRange())
		require.Len(t, o.buildFrame().Apps, 1)
	})
}

func TestOrchestratorViewToggles(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, false)

	o.handleKeyboard(char('t'))
	assert.Equal(t, 1, o.layoutStyle)
	o.handleKeyboard(char('t'))
	assert.Equal(t, 0, o.layoutStyle)

	o.handleKeyboard(char('s'))
	assert.Equal(t, interaction.SortByDuration, o.sorter.Field())

	o.handleKeyboard(char('g'))
	assert.True(t, o.session.Viewport().GlueToNow)
	assert.Equal(t, "Following now", o.status)
}

func TestOrchestratorUpdateDisplay(t *testing.T) {
	o, buf := newTestOrchestrator(t, nil, false)

	o.updateDisplay()
	out := buf.String()
	assert.Contains(t, out, "editor")
	assert.Contains(t, out, "browser")

	frame := o.buildFrame()
	assert.Len(t, frame.Windows, 3)
	assert.Equal(t, "time", frame.SortField)
	assert.Empty(t, frame.Loading)
}

func TestOrchestratorCloseRecordsMarker(t *testing.T) {
	marker := &fakeMarker{}
	o, _ := newTestOrchestrator(t, marker, true)
	require.NoError(t, o.Close())
	assert.Equal(t, []int64{2000}, marker.closedAt)

	skipped := &fakeMarker{}
	o, _ = newTestOrchestrator(t, skipped, false)
	require.NoError(t, o.Close())
	assert.Empty(t, skipped.closedAt)
}

func TestDescribePreview(t *testing.T) {
	assert.Empty(t, describePreview(nil, nil))
	assert.Equal(t, "no screenshot near cursor", describePreview(&Preview{}, nil))

	p := &Preview{Screenshot: &model.Screenshot{ID: 7, AppID: 2, CreatedAtSec: 0, PNG: make([]byte, 2048)}}
	got := describePreview(p, time.UTC)
	assert.Equal(t, "screenshot #7 (app 2) at 1970-01-01 00:00:00, 2.0 KB", got)
}
