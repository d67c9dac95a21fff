package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	ethcmn "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/okx/vesting/vesting"
)

// JournalEntry is one line of the result journal.
type JournalEntry struct {
	RunID       string            `json:"runId"`
	Op          vesting.Operation `json:"op"`
	Index       int               `json:"index"`
	Address     string            `json:"address,omitempty"`
	Amount      string            `json:"amount"`
	Entries     int               `json:"entries,omitempty"`
	TxHash      string            `json:"txHash,omitempty"`
	BlockNumber uint64            `json:"blockNumber,omitempty"`
	GasUsed     uint64            `json:"gasUsed,omitempty"`
	Status      vesting.Status    `json:"status"`
	Error       string            `json:"error,omitempty"`
	Time        time.Time         `json:"time"`
}

// Journal appends every submission transition to a JSON-lines file, so an
// operator can see which records were confirmed before a run halted. Writes
// are synchronous and flushed to disk before Record returns.
type Journal struct {
	mu    sync.Mutex
	file  *os.File
	runID string
	now   func() time.Time
}

// OpenJournal opens (or creates) path for appending and starts a new run.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	return &Journal{
		file:  f,
		runID: uuid.NewString(),
		now:   time.Now,
	}, nil
}

// RunID identifies the lines written by this process.
func (j *Journal) RunID() string {
	return j.runID
}

// Record appends res.
func (j *Journal) Record(res vesting.SubmissionResult) error {
	entry := JournalEntry{
		RunID:       j.runID,
		Op:          res.Op,
		Index:       res.Index,
		Entries:     res.Entries,
		BlockNumber: res.BlockNumber,
		GasUsed:     res.GasUsed,
		Status:      res.Status,
		Time:        j.now().UTC(),
	}
	if res.Op == vesting.OpCreateVestingSchedule {
		entry.Address = res.Beneficiary.Hex()
	}
	if res.Amount != nil {
		entry.Amount = res.Amount.Dec()
	}
	if res.TxHash != (ethcmn.Hash{}) {
		entry.TxHash = res.TxHash.Hex()
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return j.file.Sync()
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// ReadJournal loads every entry of the journal at path.
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []JournalEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("journal %s line %d: %w", path, line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// RunSummary condenses the journal lines of one run and operation.
type RunSummary struct {
	RunID     string
	Op        vesting.Operation
	Started   time.Time
	Confirmed int
	Pending   []JournalEntry // sent, never confirmed nor failed
	Failed    *JournalEntry
	// FirstIndex is the lowest index the run touched, which is the
	// --from-index it was started with.
	FirstIndex int
	// LastConfirmed is -1 when nothing was confirmed.
	LastConfirmed int
}

// NextIndex is the table index to continue from after this run. A run that
// confirmed nothing continues from where it started.
func (s RunSummary) NextIndex() int {
	if s.LastConfirmed < 0 {
		return s.FirstIndex
	}
	return s.LastConfirmed + 1
}

// Summarize groups entries by run and operation, in order of first appearance.
func Summarize(entries []JournalEntry) []RunSummary {
	type key struct {
		run string
		op  vesting.Operation
	}
	byKey := make(map[key]*RunSummary)
	pending := make(map[key]map[int]JournalEntry)
	var order []key

	for _, e := range entries {
		k := key{e.RunID, e.Op}
		s, ok := byKey[k]
		if !ok {
			s = &RunSummary{RunID: e.RunID, Op: e.Op, Started: e.Time, FirstIndex: e.Index, LastConfirmed: -1}
			byKey[k] = s
			pending[k] = make(map[int]JournalEntry)
			order = append(order, k)
		}
		if e.Index < s.FirstIndex {
			s.FirstIndex = e.Index
		}
		switch e.Status {
		case vesting.StatusPending:
			pending[k][e.Index] = e
		case vesting.StatusConfirmed:
			delete(pending[k], e.Index)
			s.Confirmed++
			if e.Index > s.LastConfirmed {
				s.LastConfirmed = e.Index
			}
		case vesting.StatusFailed:
			delete(pending[k], e.Index)
			failed := e
			s.Failed = &failed
		}
	}

	out := make([]RunSummary, 0, len(order))
	for _, k := range order {
		s := byKey[k]
		for _, e := range pending[k] {
			s.Pending = append(s.Pending, e)
		}
		sort.Slice(s.Pending, func(i, j int) bool { return s.Pending[i].Index < s.Pending[j].Index })
		out = append(out, *s)
	}
	return out
}
