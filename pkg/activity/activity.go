// Package activity records the bot's actions to a sharded JSONL feed with a
// manifest, so the log survives restarts and no single file grows unbounded.
package activity

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pvaldes/mention-bot/pkg/types"
)

// Index is the manifest for the sharded activity log. Shards are ordered
// oldest to newest; readers wanting recent activity load from the end.
type Index struct {
	Version            int       `json:"version"`
	GeneratedAt        time.Time `json:"generated_at"`
	MaxRecordsPerShard int       `json:"max_records_per_shard,omitempty"`
	Shards             []Shard   `json:"shards"`
	TotalRecords       int       `json:"total_records,omitempty"`
}

// Shard describes one JSONL file in the log directory.
type Shard struct {
	Seq     int    `json:"seq"`
	File    string `json:"file"`
	Records int    `json:"records"`
}

// Log appends activity records, rotating shards as they fill.
type Log struct {
	mu sync.Mutex

	dir                string
	indexPath          string
	maxRecordsPerShard int

	idx *Index

	curFile    *os.File
	curWriter  *bufio.Writer
	curSeq     int
	curRecords int
}

// Options configures Open.
type Options struct {
	Dir                string
	MaxRecordsPerShard int
}

// Open opens (or creates) the activity log and resumes the newest shard.
func Open(opts Options) (*Log, error) {
	if opts.Dir == "" {
		return nil, errors.New("activity dir is required")
	}
	if opts.MaxRecordsPerShard <= 0 {
		opts.MaxRecordsPerShard = 500
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	l := &Log{
		dir:                opts.Dir,
		indexPath:          filepath.Join(opts.Dir, "index.json"),
		maxRecordsPerShard: opts.MaxRecordsPerShard,
		idx: &Index{
			Version:            1,
			MaxRecordsPerShard: opts.MaxRecordsPerShard,
		},
	}

	if idx, err := loadIndex(l.indexPath); err == nil && idx != nil {
		l.idx = idx
		if l.idx.MaxRecordsPerShard == 0 {
			l.idx.MaxRecordsPerShard = opts.MaxRecordsPerShard
		}
	}

	if err := l.openForAppend(); err != nil {
		return nil, err
	}
	return l, nil
}

// Record appends one activity record. Nil receiver is a no-op so the log
// can be disabled without call-site checks.
func (l *Log) Record(act types.Activity) error {
	if l == nil {
		return nil
	}
	if act.Timestamp.IsZero() {
		act.Timestamp = time.Now()
	}

	line, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.curWriter == nil {
		return errors.New("activity log not open")
	}
	if l.curRecords >= l.maxRecordsPerShard {
		if err := l.rotateTo(l.curSeq + 1); err != nil {
			return err
		}
	}

	if _, err := l.curWriter.Write(append(line, '\n')); err != nil {
		return err
	}
	if err := l.curWriter.Flush(); err != nil {
		return err
	}

	l.curRecords++
	l.idx.TotalRecords++
	for i := range l.idx.Shards {
		if l.idx.Shards[i].Seq == l.curSeq {
			l.idx.Shards[i].Records = l.curRecords
			break
		}
	}
	return saveIndexAtomic(l.indexPath, l.idx)
}

// Close flushes and closes the current shard.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	if l.curWriter != nil {
		err = l.curWriter.Flush()
	}
	if l.curFile != nil {
		if closeErr := l.curFile.Close(); err == nil {
			err = closeErr
		}
		l.curFile = nil
		l.curWriter = nil
	}
	return err
}

func (l *Log) openForAppend() error {
	if last := l.lastShard(); last != nil {
		path := filepath.Join(l.dir, last.File)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		l.curFile = f
		l.curWriter = bufio.NewWriter(f)
		l.curSeq = last.Seq
		l.curRecords = last.Records
		return nil
	}
	return l.rotateTo(1)
}

func (l *Log) lastShard() *Shard {
	if l.idx == nil || len(l.idx.Shards) == 0 {
		return nil
	}
	return &l.idx.Shards[len(l.idx.Shards)-1]
}

func (l *Log) rotateTo(seq int) error {
	if l.curWriter != nil {
		_ = l.curWriter.Flush()
	}
	if l.curFile != nil {
		_ = l.curFile.Close()
	}

	file := shardFileName(seq)
	f, err := os.OpenFile(filepath.Join(l.dir, file), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	l.curFile = f
	l.curWriter = bufio.NewWriter(f)
	l.curSeq = seq
	l.curRecords = 0

	found := false
	for i := range l.idx.Shards {
		if l.idx.Shards[i].Seq == seq {
			l.idx.Shards[i].File = file
			found = true
			break
		}
	}
	if !found {
		l.idx.Shards = append(l.idx.Shards, Shard{Seq: seq, File: file})
		sort.Slice(l.idx.Shards, func(i, j int) bool { return l.idx.Shards[i].Seq < l.idx.Shards[j].Seq })
	}
	return saveIndexAtomic(l.indexPath, l.idx)
}

func shardFileName(seq int) string {
	return fmt.Sprintf("activity-%06d.jsonl", seq)
}

// ReadAll loads every record across all shards, oldest first. Intended for
// tests and small deployments; the manifest exists so bigger readers can
// load only the newest shards.
func ReadAll(dir string) ([]types.Activity, error) {
	idx, err := loadIndex(filepath.Join(dir, "index.json"))
	if err != nil {
		return nil, err
	}

	var out []types.Activity
	for _, shard := range idx.Shards {
		f, err := os.Open(filepath.Join(dir, shard.File))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			var act types.Activity
			if err := json.Unmarshal(scanner.Bytes(), &act); err != nil {
				f.Close()
				return nil, fmt.Errorf("decode %s: %w", shard.File, err)
			}
			out = append(out, act)
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	return out, nil
}

func loadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	idx := &Index{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, err
	}
	if idx.Version == 0 {
		idx.Version = 1
	}
	return idx, nil
}

func saveIndexAtomic(path string, idx *Index) error {
	idx.GeneratedAt = time.Now()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
