package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// RequestDelete hides a confirmed record and arms its undo timer. Requesting the same id
// again while the timer runs restarts it.
func (s *Store) RequestDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrDisposed
	}
	if _, ok := s.deleting[id]; ok {
		return nil
	}

	idx := indexOf(s.records, id)
	if idx < 0 {
		err := fmt.Errorf("%w: %s", models.ErrNotFound, id)
		s.setErrLocked("delete", err)
		return err
	}
	if s.records[idx].Status == StatusPending {
		s.setErrLocked("delete", ErrRecordBusy)
		return ErrRecordBusy
	}

	pd, ok := s.deletes[id]
	if ok && !pd.slot.Armed() {
		// fired, the delete is about to start
		return nil
	}
	if !ok {
		pd = &pendingDelete{}
		pd.slot = NewSlot(s.clock, func() { s.expireDelete(id) })
		s.deletes[id] = pd
	}
	pd.deadline = s.clock.Now().Add(s.grace)
	s.records, _ = markPendingDelete(s.records, id, pd.deadline)
	pd.slot.Arm(s.grace)
	s.lastErr = ""

	logger.Log.Debugw("delete requested", "id", id, "deadline", pd.deadline)
	return nil
}

// Undo restores a record whose delete has not been sent yet.
// It returns false when nothing was pending for id.
func (s *Store) Undo(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, ok := s.deletes[id]
	if !ok || !pd.slot.Cancel() {
		return false
	}
	delete(s.deletes, id)
	s.records, _ = restoreVisible(s.records, id)
	s.lastErr = ""
	return true
}

// PendingDeletes lists ids whose undo window is still open.
func (s *Store) PendingDeletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.deletes))
	for id, pd := range s.deletes {
		if pd.slot.Armed() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) expireDelete(id string) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	delete(s.deletes, id)
	s.deleting[id] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.confirmDelete(id)
	}()
}

func (s *Store) confirmDelete(id string) {
	unlock := s.locks.Lock(id)
	err := s.transport.Delete(s.ctx, id)
	unlock()

	if errors.Is(err, models.ErrNotFound) {
		err = nil
	}

	s.mu.Lock()
	delete(s.deleting, id)
	if err == nil {
		s.records = removeRecord(s.records, id)
		s.lastErr = ""
	} else {
		s.records, _ = restoreVisible(s.records, id)
		s.setErrLocked("delete", err)
	}
	s.mu.Unlock()

	if err == nil {
		logger.Log.Infow("transaction deleted", "id", id)
	}
	if s.onDelete != nil {
		s.onDelete(id, err)
	}
}
