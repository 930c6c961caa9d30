// Package store persists harvested reviews as one append-only CSV file per
// app and reconstructs the harvest position from those files.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Sternrassler/steam-review-harvester/pkg/review"
	"github.com/jszwec/csvutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the harvest position derived from an app's stored output.
type State struct {
	// Cursor is the resume token recorded on the last trusted row.
	Cursor string

	// Seen holds every record key found in the file.
	Seen review.KeySet

	// Total is the running total recorded on the last trusted row.
	Total int
}

// Offset returns the number of distinct records already stored.
func (s State) Offset() int {
	return len(s.Seen)
}

func startState() State {
	return State{
		Cursor: review.StartCursor,
		Seen:   review.KeySet{},
		Total:  0,
	}
}

// Store reads and writes per-app review files under a directory.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// New creates a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{
		dir:    dir,
		logger: log.With().Str("component", "store").Logger(),
	}
}

// Path returns the output file for appID.
func (s *Store) Path(appID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("review_%s.csv", appID))
}

// Load scans the stored output for appID and returns the resume state.
// A missing file yields the start state. Rows that fail to decode are logged
// and skipped; a final row without its terminating newline is torn and
// ignored. Only bad bytes after the last good row are cut off the file, so
// later appends start on a row boundary and earlier rows stay untouched.
func (s *Store) Load(appID string) (State, error) {
	path := s.Path(appID)
	logger := s.logger.With().Str("app_id", appID).Str("path", path).Logger()

	state, good, size, err := scan(path, logger)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug().Msg("No stored output, starting from scratch")
		return startState(), nil
	}
	if err != nil {
		return startState(), fmt.Errorf("load %s: %w", path, err)
	}

	if good < size {
		logger.Warn().
			Int64("size", size).
			Int64("kept", good).
			Msg("Dropping untrusted tail from stored output")
		if err := os.Truncate(path, good); err != nil {
			return startState(), fmt.Errorf("truncate torn tail of %s: %w", path, err)
		}
	}

	logger.Info().
		Int("stored", state.Offset()).
		Int("total", state.Total).
		Str("cursor", state.Cursor).
		Msg("Loaded stored output")

	return state, nil
}

// offsetReader records the byte offset at the end of every row it reads,
// including rows the csv reader rejects.
type offsetReader struct {
	r   *csv.Reader
	end int64
}

func (o *offsetReader) Read() ([]string, error) {
	record, err := o.r.Read()
	o.end = o.r.InputOffset()
	return record, err
}

// scan returns the derived state, the byte offset just past the last good row
// (or the header when there is none) and the file size.
func scan(path string, logger zerolog.Logger) (State, int64, int64, error) {
	state := startState()

	f, err := os.Open(path)
	if err != nil {
		return state, 0, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return state, 0, 0, err
	}
	size := info.Size()
	if size == 0 {
		return state, 0, 0, nil
	}

	terminated, err := endsWithNewline(f, size)
	if err != nil {
		return state, 0, size, err
	}
	torn := func(end int64) bool { return end == size && !terminated }

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	or := &offsetReader{r: r}
	dec, err := csvutil.NewDecoder(or)
	if err != nil || torn(or.end) {
		// No complete header: nothing in the file can be trusted.
		logger.Warn().Err(err).Msg("Stored output has no complete header")
		return state, 0, size, nil
	}
	good := or.end

	for row := 1; ; row++ {
		var rec review.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Int("row", row).Msg("Skipping undecodable row")
			continue
		}
		if torn(or.end) {
			logger.Warn().Str("recommendationid", rec.RecommendationID).Msg("Ignoring unterminated final row")
			break
		}
		if rec.RecommendationID == "" || rec.Cursor == "" {
			logger.Warn().Int("row", row).Msg("Skipping row without key or cursor")
			continue
		}

		state.Seen.Add(rec.RecommendationID)
		state.Cursor = rec.Cursor
		state.Total = rec.TotalReviews
		good = or.end
	}

	return state, good, size, nil
}

func endsWithNewline(f *os.File, size int64) (bool, error) {
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// Append writes the reviews of page for appID, stamping page.Cursor and
// total on every row. When fresh is true any existing file is replaced;
// otherwise rows are appended. The page is written with one write and
// synced, so a failure never leaves more than a torn final row behind.
func (s *Store) Append(appID string, page *review.Page, total int, fresh bool) error {
	if page == nil || len(page.Reviews) == 0 {
		return &WriteError{AppID: appID, Op: "append", Err: ErrEmptyPage}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &WriteError{AppID: appID, Op: "mkdir", Err: err}
	}

	path := s.Path(appID)
	header := fresh
	if !fresh {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0) {
			header = true
		} else if err != nil {
			return &WriteError{AppID: appID, Op: "stat", Err: err}
		}
	}

	data, err := encode(review.FlattenPage(appID, page, total), header)
	if err != nil {
		return &WriteError{AppID: appID, Op: "encode", Err: err}
	}

	if fresh {
		err = replaceFile(path, data)
	} else {
		err = appendFile(path, data)
	}
	if err != nil {
		return &WriteError{AppID: appID, Op: "write", Err: err}
	}

	s.logger.Debug().
		Str("app_id", appID).
		Int("records", len(page.Reviews)).
		Bool("fresh", fresh).
		Msg("Appended page")

	return nil
}

func encode(records []review.Record, header bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = header
	if err := enc.Encode(records); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// replaceFile writes data to a sibling temp file and renames it over path,
// so the previous output survives until the new page is durable.
func replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
