package curate

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ddlconv/ddlconv/internal/dictionary"
)

func testRows() []dictionary.Entry {
	return []dictionary.Entry{
		{Table: "TBPEDIDO", SourceColumn: "CD_PEDIDO", TargetName: "id_pedido", SourceType: "INTEGER"},
		{Table: "TBPEDIDO", SourceColumn: "CD_CLIENTE", SourceType: "INTEGER", SourceDescription: "Cliente"},
		{Table: "TBPEDIDO", SourceColumn: "DS_OBS [REMOVIDA]", TargetName: "ds_obs", SourceType: "VARCHAR"},
		{Table: "TBPEDIDO", SourceColumn: "VL_TOTAL", SourceType: "DECIMAL"},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		result, _ := m.Update(msg)
		m = result.(Model)
	}
	return m
}

func TestNavigation(t *testing.T) {
	m := New("TBPEDIDO", testRows())

	m = send(m, runes("j"))
	if m.cursor != 1 {
		t.Errorf("after j: cursor = %d, want 1", m.cursor)
	}
	m = send(m, runes("k"), runes("k"))
	if m.cursor != 0 {
		t.Errorf("cursor should clamp at 0, got %d", m.cursor)
	}
	m = send(m, runes("j"), runes("j"), runes("j"), runes("j"))
	if m.cursor != 3 {
		t.Errorf("cursor should clamp at 3, got %d", m.cursor)
	}
}

func TestNextPendingSkipsRemoved(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("n"))
	if m.cursor != 1 {
		t.Fatalf("first pending = %d, want 1", m.cursor)
	}
	m = send(m, runes("n"))
	if m.cursor != 3 {
		t.Errorf("second pending = %d, want 3", m.cursor)
	}
}

func TestEditTargetName(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("j"), runes("e"))
	if m.editing != editTarget {
		t.Fatal("expected edit mode")
	}
	m = send(m, runes("cliente_id"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.editing != editNone {
		t.Error("edit mode should end on enter")
	}
	if got := m.rows[1].TargetName; got != "cliente_id" {
		t.Errorf("TargetName = %q", got)
	}
	if !m.Dirty() {
		t.Error("expected dirty model")
	}
	if m.cursor != 2 {
		t.Errorf("cursor should advance after edit, got %d", m.cursor)
	}
}

func TestEditEmptyUsesPlaceholder(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("j"), runes("e"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.rows[1].TargetName; got != "cd_cliente" {
		t.Errorf("TargetName = %q, want cd_cliente", got)
	}
}

func TestEditRejectsSpaces(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("j"), runes("e"), runes("bad name"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.editing != editTarget || !m.statusErr {
		t.Error("expected the edit to stay open with an error")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing != editNone || m.rows[1].TargetName != "" {
		t.Error("esc should discard the edit")
	}
}

func TestEditOfficialDescription(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("o"), runes("Numero do pedido"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.rows[0].OfficialDescription; got != "Numero do pedido" {
		t.Errorf("OfficialDescription = %q", got)
	}
}

func TestRemovedRowsNotEditable(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("j"), runes("j"), runes("e"))
	if m.editing != editNone {
		t.Error("removed row should not enter edit mode")
	}
	if !strings.Contains(m.status, "removed") {
		t.Errorf("status = %q", m.status)
	}
}

func TestSaveRequiresCompleteRows(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	m = send(m, runes("s"))
	if m.Done() {
		t.Fatal("save should be refused with pending rows")
	}
	if m.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", m.Pending())
	}

	m = send(m, runes("a"))
	if m.Pending() != 0 {
		t.Fatalf("Pending after auto-fill = %d", m.Pending())
	}
	m = send(m, runes("s"))
	if !m.Done() || m.Cancelled() {
		t.Fatal("expected a completed save")
	}
	rows := m.Result()
	if rows[3].TargetName != "vl_total" || rows[2].TargetName != "ds_obs" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestSaveRejectsDuplicateTargets(t *testing.T) {
	rows := []dictionary.Entry{
		{SourceColumn: "A", TargetName: "same"},
		{SourceColumn: "B", TargetName: "Same"},
	}
	m := send(New("T", rows), runes("s"))
	if m.Done() {
		t.Error("duplicate target names should block saving")
	}
}

func TestCancel(t *testing.T) {
	m := send(New("TBPEDIDO", testRows()), runes("q"))
	if !m.Cancelled() {
		t.Error("expected cancelled")
	}
	if m.Result() != nil {
		t.Error("cancelled model should return nil result")
	}
}

func TestInputNotMutated(t *testing.T) {
	rows := testRows()
	m := New("TBPEDIDO", rows)
	send(m, runes("a"))
	if rows[1].TargetName != "" {
		t.Error("New should copy its rows")
	}
}

func TestView(t *testing.T) {
	m := New("TBPEDIDO", testRows())
	view := m.View()
	for _, want := range []string{"TBPEDIDO", "CD_CLIENTE", "(pending)", "2 row(s) pending"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := New("EMPTY", nil).View()
	if !strings.Contains(empty, "No dictionary rows") {
		t.Error("empty view should say so")
	}
}
