package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

const (
	logExt     = ".jsonl"
	archiveDir = "archive"
)

// FileStore keeps one append-only JSONL file per session key.
type FileStore struct {
	dir string
	log *logging.Logger
	now func() time.Time
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string, log *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir, log: log.Sub("session"), now: time.Now}, nil
}

func (s *FileStore) path(key domain.SessionKey) string {
	return filepath.Join(s.dir, key.FileStem()+logExt)
}

// Append writes messages as JSONL lines at the end of the key's file.
func (s *FileStore) Append(key domain.SessionKey, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.path(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return storeErr("append", key, err)
	}
	defer f.Close()

	for _, m := range msgs {
		line, err := json.Marshal(m)
		if err != nil {
			return storeErr("append", key, err)
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			return storeErr("append", key, err)
		}
	}
	return nil
}

// Read loads the key's full log. Corrupt lines are skipped with a warning
// so one bad write cannot poison a whole session.
func (s *FileStore) Read(key domain.SessionKey) ([]domain.Message, error) {
	f, err := os.Open(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read", key, err)
	}
	defer f.Close()

	var msgs []domain.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m domain.Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Int("line", lineNo).
				Msg("skipping corrupt session line")
			continue
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, storeErr("read", key, err)
	}
	return msgs, nil
}

// ReplacePrefix rewrites the log with the summary in place of the first
// count messages. The new log is written to a temp file and renamed over
// the old one so readers never see a partial file.
func (s *FileStore) ReplacePrefix(key domain.SessionKey, count int, summary domain.Message) error {
	msgs, err := s.Read(key)
	if err != nil {
		return err
	}
	if count <= 0 || count > len(msgs) {
		return storeErr("replace", key, fmt.Errorf("prefix count %d out of range (log has %d)", count, len(msgs)))
	}

	replaced := make([]domain.Message, 0, len(msgs)-count+1)
	replaced = append(replaced, summary)
	replaced = append(replaced, msgs[count:]...)

	tmp, err := os.CreateTemp(s.dir, key.FileStem()+".tmp-*")
	if err != nil {
		return storeErr("replace", key, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, m := range replaced {
		line, err := json.Marshal(m)
		if err != nil {
			tmp.Close()
			return storeErr("replace", key, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return storeErr("replace", key, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return storeErr("replace", key, err)
	}
	if err := tmp.Close(); err != nil {
		return storeErr("replace", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return storeErr("replace", key, err)
	}
	s.log.Debug().Str("key", key.String()).Int("replaced", count).Msg("compacted session log")
	return nil
}

// ResetIfDue archives the log file when its last write happened on a
// previous calendar day. The file moves under archive/ with a date suffix.
func (s *FileStore) ResetIfDue(key domain.SessionKey, policy ResetPolicy) (bool, error) {
	if policy != ResetDaily {
		return false, nil
	}
	path := s.path(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("reset", key, err)
	}

	last := info.ModTime()
	today := s.now()
	if sameDay(last, today) {
		return false, nil
	}

	dir := filepath.Join(s.dir, archiveDir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, storeErr("reset", key, err)
	}
	dest := filepath.Join(dir, key.FileStem()+"."+last.Format("2006-01-02")+logExt)
	// A second reset on the same archive day just appends a counter.
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s.%s.%d%s", key.FileStem(), last.Format("2006-01-02"), i, logExt))
	}
	if err := os.Rename(path, dest); err != nil {
		return false, storeErr("reset", key, err)
	}
	s.log.Info().Str("key", key.String()).Str("archive", dest).Msg("session log reset")
	return true, nil
}

// Keys lists live session keys by scanning the store directory.
func (s *FileStore) Keys() ([]domain.SessionKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	var keys []domain.SessionKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), logExt) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), logExt)
		keyStr := strings.ReplaceAll(stem, "__", ":")
		key, err := domain.ParseSessionKey(keyStr)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
