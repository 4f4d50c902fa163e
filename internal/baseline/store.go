package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jackhale98/tessera/internal/errs"
)

// DefaultDir is where baselines live unless configured otherwise.
const DefaultDir = "baselines"

// Store persists baselines as one JSON document per file.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Header is the listing view of a stored baseline.
type Header struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      Type      `json:"type"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
	EndDate   time.Time `json:"end_date"`
	TotalCost float64   `json:"total_cost"`
}

// Metrics summarises a stored baseline.
type Metrics struct {
	Tasks                int     `json:"tasks"`
	Milestones           int     `json:"milestones"`
	Resources            int     `json:"resources"`
	DurationDays         int     `json:"duration_days"`
	Cost                 float64 `json:"cost"`
	Effort               float64 `json:"effort"`
	AverageResourceHours float64 `json:"average_resource_hours"`
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create baseline dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Add persists a new baseline. A current baseline archives the one it
// replaces; an initial baseline is only unmarked.
func (s *Store) Add(b *Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(b.ID)); err == nil {
		return errs.New(errs.Validation, "baseline.Store.Add", "baseline %q already exists", b.ID)
	}
	if b.IsCurrent {
		if err := s.clearCurrent(true); err != nil {
			return err
		}
	}
	b.captured = true
	return s.write(b)
}

// Save is Add without lifecycle side effects. Existing baselines cannot be
// overwritten.
func (s *Store) Save(b *Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(b.ID)); err == nil {
		return errs.New(errs.Validation, "baseline.Store.Save", "baseline %q already exists", b.ID)
	}
	b.captured = true
	return s.write(b)
}

func (s *Store) write(b *Baseline) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	return os.WriteFile(s.path(b.ID), data, 0644)
}

// Load reads a baseline by id.
func (s *Store) Load(id string) (*Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

func (s *Store) load(id string) (*Baseline, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.New(errs.NotFound, "baseline.Store.Load", "baseline %q", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baseline %s: %w", id, err)
	}
	b.captured = true
	return &b, nil
}

// List returns the headers of every stored baseline, oldest first.
func (s *Store) List() ([]Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *Store) list() ([]Header, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read baseline dir: %w", err)
	}

	var out []Header
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read baseline: %w", err)
		}
		if !gjson.ValidBytes(data) {
			continue
		}
		fields := gjson.GetManyBytes(data, "id", "name", "type", "is_current", "created_at", "end_date", "total_cost")
		out = append(out, Header{
			ID:        fields[0].String(),
			Name:      fields[1].String(),
			Type:      Type(fields[2].String()),
			IsCurrent: fields[3].Bool(),
			CreatedAt: fields[4].Time(),
			EndDate:   fields[5].Time(),
			TotalCost: fields[6].Float(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Current returns the current baseline.
func (s *Store) Current() (*Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	headers, err := s.list()
	if err != nil {
		return nil, err
	}
	for i := len(headers) - 1; i >= 0; i-- {
		if headers[i].IsCurrent {
			return s.load(headers[i].ID)
		}
	}
	return nil, errs.New(errs.NotFound, "baseline.Store.Current", "no current baseline")
}

// clearCurrent unmarks the current baseline, archiving it when asked.
func (s *Store) clearCurrent(archive bool) error {
	headers, err := s.list()
	if err != nil {
		return err
	}
	for _, h := range headers {
		if !h.IsCurrent {
			continue
		}
		b, err := s.load(h.ID)
		if err != nil {
			return err
		}
		b.IsCurrent = false
		if archive && b.Type != Initial {
			b.Type = Archived
		}
		if err := s.write(b); err != nil {
			return err
		}
	}
	return nil
}

// SetCurrent makes id the current baseline. An archived baseline is
// restored as approved.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(id)
	if err != nil {
		return err
	}
	if err := s.clearCurrent(false); err != nil {
		return err
	}
	b.IsCurrent = true
	if b.Type == Archived {
		b.Type = Approved
	}
	return s.write(b)
}

// Archive retires a baseline. Initial baselines keep their type.
func (s *Store) Archive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.load(id)
	if err != nil {
		return err
	}
	if b.Type != Initial {
		b.Type = Archived
	}
	b.IsCurrent = false
	return s.write(b)
}

// Delete removes a baseline. The current baseline and initial baselines
// are kept.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "baseline.Store.Delete"
	b, err := s.load(id)
	if err != nil {
		return err
	}
	if b.IsCurrent {
		return errs.New(errs.Validation, op, "baseline %q is current", id)
	}
	if b.Type == Initial {
		return errs.New(errs.Validation, op, "baseline %q is the initial baseline", id)
	}
	return os.Remove(s.path(id))
}

// Metrics summarises a stored baseline.
func (s *Store) Metrics(id string) (Metrics, error) {
	b, err := s.Load(id)
	if err != nil {
		return Metrics{}, err
	}
	return b.Metrics(), nil
}

// Metrics summarises the baseline.
func (b *Baseline) Metrics() Metrics {
	m := Metrics{
		Tasks:        len(b.Tasks),
		Milestones:   len(b.Milestones),
		Resources:    len(b.Resources),
		DurationDays: b.TotalDurationDays,
		Cost:         b.TotalCost,
		Effort:       b.TotalEffort,
	}
	if len(b.Resources) > 0 {
		total := 0.0
		for _, r := range b.Resources {
			total += r.Hours
		}
		m.AverageResourceHours = total / float64(len(b.Resources))
	}
	return m
}
