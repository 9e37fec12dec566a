package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeu5/qfuzz/util"
)

// Record of an accepted input
type Record struct {
	String string    `json:"string"`
	Length int       `json:"length"`
	Reward float64   `json:"reward"`
	Steps  int       `json:"steps"`
	States int       `json:"states"`
	Time   time.Time `json:"time"`
}

// ResultsLog is an append only, newline delimited JSON log of accepted inputs
type ResultsLog struct {
	path string
}

func NewResultsLog(dir string) *ResultsLog {
	return &ResultsLog{
		path: filepath.Join(dir, ResultsFile),
	}
}

func (r *ResultsLog) Path() string {
	return r.path
}

func (r *ResultsLog) Append(_ context.Context, rec Record) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := util.AppendLineAtomic(r.path, string(bs), 0644); err != nil {
		return fmt.Errorf("append result %s: %w", r.path, err)
	}
	return nil
}

// Read returns every record of the log in order. A missing log is empty.
func (r *ResultsLog) Read() ([]Record, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	records := make([]Record, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line += 1
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", r.path, line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
