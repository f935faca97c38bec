package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/promoter-events/internal/event"
)

const (
	DetailsFile  = "event_details.txt"
	PosterFile   = "poster.jpg"
	CalendarFile = "event.ics"
	SummaryFile  = "run_summary.json"
)

// Storage handles the output directory tree
type Storage struct {
	root string
}

// New creates a Storage rooted at root. Nothing is created on disk until
// ResetPartitions is called.
func New(root string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, root[2:])
	}
	if root == "" {
		root = "."
	}

	return &Storage{
		root: root,
	}, nil
}

// Root returns the output root directory
func (s *Storage) Root() string {
	return s.root
}

// PartitionDir returns the directory of a partition such as "upcoming_events"
func (s *Storage) PartitionDir(partition string) string {
	return filepath.Join(s.root, partition)
}

// ResetPartitions deletes each partition with all its contents and recreates it empty
func (s *Storage) ResetPartitions(partitions ...string) error {
	for _, p := range partitions {
		if err := validName(p); err != nil {
			return err
		}
		dir := s.PartitionDir(p)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// EventDir creates and returns <root>/<partition>/event<n>
func (s *Storage) EventDir(partition string, n int) (string, error) {
	if err := validName(partition); err != nil {
		return "", err
	}
	dir := filepath.Join(s.PartitionDir(partition), fmt.Sprintf("event%d", n))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating event directory: %w", err)
	}
	return dir, nil
}

// SaveSummary writes v as indented JSON to <root>/run_summary.json
func (s *Storage) SaveSummary(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.root, SummaryFile), data, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// LoadSummary reads <root>/run_summary.json into v
func (s *Storage) LoadSummary(v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.root, SummaryFile))
	if err != nil {
		return fmt.Errorf("reading summary: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing summary: %w", err)
	}
	return nil
}

// WriteDetails writes the record's text layout to <dir>/event_details.txt
func WriteDetails(dir string, rec *event.Record) error {
	path := filepath.Join(dir, DetailsFile)
	if err := os.WriteFile(path, []byte(rec.Text()), 0644); err != nil {
		return fmt.Errorf("writing event details: %w", err)
	}
	return nil
}

// WriteCalendar writes an iCalendar document to <dir>/event.ics
func WriteCalendar(dir, ics string) error {
	path := filepath.Join(dir, CalendarFile)
	if err := os.WriteFile(path, []byte(ics), 0644); err != nil {
		return fmt.Errorf("writing calendar file: %w", err)
	}
	return nil
}

// validName rejects partition names that would escape the output root.
func validName(partition string) error {
	if partition == "" || partition == "." || partition == ".." ||
		strings.ContainsAny(partition, `/\`) {
		return fmt.Errorf("invalid partition name: %q", partition)
	}
	return nil
}
