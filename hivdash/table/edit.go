package table

import (
	"context"
	"fmt"

	"github.com/arthur-debert/hivdash/hivdash/storage"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

func (t *Table) indexOf(id string) int {
	for i := range t.rows {
		if t.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// BeginEdit puts the row with id into edit mode and returns its draft.
// Only one row is edited at a time; starting another edit discards the
// previous draft.
func (t *Table) BeginEdit(id string) (Draft, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(id)
	if idx < 0 {
		return Draft{}, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	snapshot := storage.CloneRecord(t.rows[idx])
	t.editing = &editState{id: id, snapshot: snapshot, draft: DraftOf(snapshot)}
	return t.editing.draft, nil
}

// Editing returns the id of the row in edit mode.
func (t *Table) Editing() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editing == nil {
		return "", false
	}
	return t.editing.id, true
}

// Draft returns the current draft.
func (t *Table) Draft() (Draft, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editing == nil {
		return Draft{}, ErrNotEditing
	}
	return t.editing.draft, nil
}

// SetField edits one column of the draft.
func (t *Table) SetField(column Column, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editing == nil {
		return ErrNotEditing
	}

	d := &t.editing.draft
	switch column {
	case ColEntity:
		d.Entity = value
	case ColCode:
		d.Code = value
	case ColYear:
		d.Year = value
	case ColDeaths:
		d.Deaths = value
	case ColIncidence:
		d.Incidence = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	return nil
}

// Save writes the draft to the store and, once that succeeds, replaces the
// local row and leaves edit mode. On failure the row and draft are kept.
func (t *Table) Save(ctx context.Context) (types.Record, error) {
	t.mu.Lock()
	if t.editing == nil {
		t.mu.Unlock()
		return types.Record{}, ErrNotEditing
	}
	edit := *t.editing
	t.mu.Unlock()

	upd := edit.draft.Update()
	if err := t.store.Update(ctx, edit.id, upd); err != nil {
		t.logger.Error("failed to update record", "id", edit.id, "error", err)
		return types.Record{}, fmt.Errorf("failed to update record: %w", err)
	}

	updated := storage.CloneRecord(edit.snapshot)
	upd.Apply(&updated)

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx := t.indexOf(edit.id); idx >= 0 {
		updated.UpdatedAt = t.rows[idx].UpdatedAt
		t.rows[idx] = updated
	}
	if t.editing != nil && t.editing.id == edit.id {
		t.editing = nil
	}
	t.logger.Info("record updated", "id", edit.id)
	return updated, nil
}

// Cancel discards the draft and leaves edit mode without calling the store.
func (t *Table) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.editing == nil {
		return ErrNotEditing
	}
	if idx := t.indexOf(t.editing.id); idx >= 0 {
		t.rows[idx] = t.editing.snapshot
	}
	t.editing = nil
	return nil
}

// Delete removes the record from the store and then from the table. A store
// failure leaves the row in place.
func (t *Table) Delete(ctx context.Context, id string) error {
	if err := t.store.Delete(ctx, id); err != nil {
		t.logger.Error("failed to delete record", "id", id, "error", err)
		return fmt.Errorf("failed to delete record: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx := t.indexOf(id); idx >= 0 {
		t.rows = append(t.rows[:idx:idx], t.rows[idx+1:]...)
	}
	if t.editing != nil && t.editing.id == id {
		t.editing = nil
	}
	t.logger.Info("record deleted", "id", id)
	return nil
}
