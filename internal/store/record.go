package store

import (
	"sort"
	"time"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// Status tags a record in the store's collection.
type Status int

const (
	// StatusConfirmed is a record the server has acknowledged.
	StatusConfirmed Status = iota
	// StatusPending is an optimistic insert waiting for the server.
	StatusPending
	// StatusPendingDelete is hidden from view until its undo window closes.
	StatusPendingDelete
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusPending:
		return "pending"
	case StatusPendingDelete:
		return "pending-delete"
	}
	return "unknown"
}

// Record is a transaction plus its optimistic-UI status.
type Record struct {
	models.Transaction
	Status   Status
	TempID   string    // set while StatusPending
	Deadline time.Time // set while StatusPendingDelete
}

// Visible reports whether the record is shown in the transaction list.
func (r Record) Visible() bool {
	return r.Status != StatusPendingDelete
}

// The functions below never modify their input slice.

func indexOf(recs []Record, id string) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneRecords(recs []Record) []Record {
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// sortRecords orders pending inserts first, then by date, newest first. Ties keep their order.
func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := recs[i].Status == StatusPending, recs[j].Status == StatusPending
		if pi != pj {
			return pi
		}
		return recs[i].Date.After(recs[j].Date)
	})
}

// insertPending puts an optimistic record at the front.
func insertPending(recs []Record, tx models.Transaction) []Record {
	out := make([]Record, 0, len(recs)+1)
	out = append(out, Record{Transaction: tx, Status: StatusPending, TempID: tx.ID})
	return append(out, recs...)
}

// confirmPending swaps the temporary record for the confirmed one at its sorted position.
func confirmPending(recs []Record, tempID string, tx models.Transaction) []Record {
	out := removeRecord(recs, tempID)
	if i := indexOf(out, tx.ID); i >= 0 {
		out[i].Transaction = tx
	} else {
		out = append(out, Record{Transaction: tx, Status: StatusConfirmed})
	}
	sortRecords(out)
	return out
}

func removeRecord(recs []Record, id string) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// replaceRecord stores a confirmed update, keeping the record's status.
func replaceRecord(recs []Record, tx models.Transaction) ([]Record, bool) {
	i := indexOf(recs, tx.ID)
	if i < 0 {
		return recs, false
	}
	out := cloneRecords(recs)
	out[i].Transaction = tx
	sortRecords(out)
	return out, true
}

func markPendingDelete(recs []Record, id string, deadline time.Time) ([]Record, bool) {
	i := indexOf(recs, id)
	if i < 0 {
		return recs, false
	}
	out := cloneRecords(recs)
	out[i].Status = StatusPendingDelete
	out[i].Deadline = deadline
	return out, true
}

func restoreVisible(recs []Record, id string) ([]Record, bool) {
	i := indexOf(recs, id)
	if i < 0 || recs[i].Status != StatusPendingDelete {
		return recs, false
	}
	out := cloneRecords(recs)
	out[i].Status = StatusConfirmed
	out[i].Deadline = time.Time{}
	return out, true
}

// mergePage adds fetched items that are not yet present and re-sorts.
// Items whose id is in hidden come in as pending deletes with the given deadline.
func mergePage(recs []Record, items []models.Transaction, hidden map[string]time.Time) []Record {
	out := cloneRecords(recs)
	seen := make(map[string]struct{}, len(out)+len(items))
	for _, r := range out {
		seen[r.ID] = struct{}{}
	}
	for _, tx := range items {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		rec := Record{Transaction: tx, Status: StatusConfirmed}
		if deadline, ok := hidden[tx.ID]; ok {
			rec.Status = StatusPendingDelete
			rec.Deadline = deadline
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}
