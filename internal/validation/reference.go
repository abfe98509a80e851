package validation

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	eventDomain "github.com/allisson/workforce-sync/internal/event/domain"
)

//go:embed reference_tables.yaml
var defaultReferenceTables []byte

// ReferenceTables holds the enumerations and thresholds the rules check against.
type ReferenceTables struct {
	MinimumWage     eventDomain.Money `yaml:"-"`
	SalaryCeiling   eventDomain.Money `yaml:"-"`
	MinimumWageRaw  string            `yaml:"minimum_wage"`
	SalaryCeilingRaw string           `yaml:"salary_ceiling"`
	Categories      []string          `yaml:"categories"`
	ContractTypes   []string          `yaml:"contract_types"`
	Nationalities   []string          `yaml:"nationalities"`
	MaritalStatuses []string          `yaml:"marital_statuses"`
	Races           []string          `yaml:"races"`
	EducationLevels []string          `yaml:"education_levels"`
	Disabilities    []string          `yaml:"disabilities"`
	StateCodes      []string          `yaml:"state_codes"`
}

// ParseReferenceTables decodes a YAML document. Missing sections keep the embedded defaults.
func ParseReferenceTables(data []byte) (*ReferenceTables, error) {
	tables := &ReferenceTables{}
	if err := yaml.Unmarshal(defaultReferenceTables, tables); err != nil {
		return nil, fmt.Errorf("parse default reference tables: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, tables); err != nil {
			return nil, fmt.Errorf("parse reference tables: %w", err)
		}
	}

	var err error
	if tables.MinimumWage, err = eventDomain.ParseMoney(tables.MinimumWageRaw); err != nil {
		return nil, fmt.Errorf("minimum_wage: %w", err)
	}
	if tables.SalaryCeiling, err = eventDomain.ParseMoney(tables.SalaryCeilingRaw); err != nil {
		return nil, fmt.Errorf("salary_ceiling: %w", err)
	}
	return tables, nil
}

// DefaultReferenceTables returns the embedded tables.
func DefaultReferenceTables() *ReferenceTables {
	tables, err := ParseReferenceTables(nil)
	if err != nil {
		panic(err)
	}
	return tables
}

// ReferenceSource provides the current reference tables.
type ReferenceSource interface {
	Tables() *ReferenceTables
}

// StaticReference serves a fixed set of tables.
type StaticReference struct {
	tables *ReferenceTables
}

// NewStaticReference wraps tables in a ReferenceSource.
func NewStaticReference(tables *ReferenceTables) *StaticReference {
	return &StaticReference{tables: tables}
}

// Tables returns the wrapped tables.
func (s *StaticReference) Tables() *ReferenceTables {
	return s.tables
}

// ReferenceLoader reads reference tables from a YAML file and reloads them when
// the file changes. A failed reload keeps the previous tables.
type ReferenceLoader struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	current *ReferenceTables
}

// NewReferenceLoader creates a loader and performs the initial load.
func NewReferenceLoader(path string, logger *slog.Logger) (*ReferenceLoader, error) {
	l := &ReferenceLoader{path: path, logger: logger}
	tables, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = tables
	return l, nil
}

// Tables returns the latest successfully loaded tables.
func (l *ReferenceLoader) Tables() *ReferenceTables {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Reload forces an immediate re-read of the file.
func (l *ReferenceLoader) Reload() error {
	tables, err := l.load()
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.current = tables
	l.mu.Unlock()
	return nil
}

// Watch reloads the tables on every write to the file until stop is called.
func (l *ReferenceLoader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reference tables watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("reference tables watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer w.Close() //nolint:errcheck
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if err := l.Reload(); err != nil {
					l.logger.Warn("reference tables reload failed, keeping previous tables",
						slog.String("path", l.path),
						slog.Any("error", err),
					)
					continue
				}
				l.logger.Info("reference tables reloaded", slog.String("path", l.path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("reference tables watcher error", slog.Any("error", err))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}, nil
}

func (l *ReferenceLoader) load() (*ReferenceTables, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read reference tables %s: %w", l.path, err)
	}
	return ParseReferenceTables(data)
}
