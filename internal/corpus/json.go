// Package corpus loads scraped documents into DocumentRecords.
package corpus

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ragqa/internal/domain"
)

// record is the on-disk shape written by the scraper.
type record struct {
	URL       string `json:"url"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// JSONSource reads a JSON array of {url, content, timestamp} records.
type JSONSource struct {
	path    string
	lenient bool
	logger  *log.Logger
}

// NewJSONSource creates a source for the file at path. In lenient mode malformed
// records are skipped with a warning instead of aborting the load.
func NewJSONSource(path string, lenient bool, logger *log.Logger) *JSONSource {
	if logger == nil {
		logger = log.Default()
	}
	return &JSONSource{path: path, lenient: lenient, logger: logger}
}

// Load reads and validates every record.
func (s *JSONSource) Load(ctx context.Context) ([]domain.DocumentRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", domain.ErrCorpusMissing, s.path)
		}
		return nil, fmt.Errorf("read corpus %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrCorpusMissing, s.path)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", s.path, err)
	}
	docs := make([]domain.DocumentRecord, 0, len(raw))
	for i, msg := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := decodeRecord(msg)
		if err != nil {
			if s.lenient {
				s.logger.Printf("corpus: skipping record %d: %v", i, err)
				continue
			}
			return nil, fmt.Errorf("corpus record %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s has no usable records", domain.ErrCorpusMissing, s.path)
	}
	return docs, nil
}

func decodeRecord(msg json.RawMessage) (domain.DocumentRecord, error) {
	var r record
	if err := json.Unmarshal(msg, &r); err != nil {
		return domain.DocumentRecord{}, err
	}
	if strings.TrimSpace(r.Content) == "" {
		return domain.DocumentRecord{}, errors.New("missing content")
	}
	if strings.TrimSpace(r.URL) == "" {
		return domain.DocumentRecord{}, errors.New("missing url")
	}
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return domain.DocumentRecord{}, err
	}
	return domain.DocumentRecord{
		ID:         documentID(r.URL, r.Content),
		Text:       r.Content,
		SourceURL:  r.URL,
		IngestedAt: ts,
	}, nil
}

// Scraper timestamps are ISO-8601, usually without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func documentID(url, content string) string {
	h := sha1.Sum([]byte(url + "\x00" + content))
	return hex.EncodeToString(h[:8])
}
