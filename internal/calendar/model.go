package calendar

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

const (
	PrimaryID = "primary"
	DemoID    = "demo"
)

var (
	ErrDuplicateDataset = errors.New("dataset id already exists")
	ErrUnknownDataset   = errors.New("unknown dataset")
	ErrNotEditable      = errors.New("cell is not editable")
)

// Transform maps a non-null value of a source dataset into a clone.
type Transform func(float64) float64

type cloneSpec struct {
	source    string
	transform Transform
}

// Model owns the datasets drawn over the grid. The primary dataset always
// exists and is the only one that can be edited. Model is not safe for
// concurrent use; the view coordinator serializes access.
type Model struct {
	now        func() time.Time
	datasets   []*core.Dataset
	clones     map[string]cloneSpec
	todayIndex int
}

func NewModel(now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{
		now: now,
		datasets: []*core.Dataset{{
			ID:      PrimaryID,
			Name:    "Primary",
			Style:   core.DatasetStyle{Color: "#00639b", Hue: 205, StrokeWidth: 2},
			Visible: true,
		}},
		clones:     make(map[string]cloneSpec),
		todayIndex: -1,
	}
}

// Load densifies records into the primary dataset and re-derives every
// transformed clone from its source so overlays keep the same span.
func (m *Model) Load(records []core.Record) Sequence {
	seq := Densify(records, m.now())
	m.datasets[0].Cells = seq.Cells
	m.todayIndex = seq.TodayIndex

	for _, ds := range m.datasets[1:] {
		spec, ok := m.clones[ds.ID]
		if !ok || spec.transform == nil {
			continue
		}
		if src := m.find(spec.source); src != nil {
			ds.Cells = copyCells(src.Cells, spec.transform)
		}
	}
	return seq
}

// Add registers ds. IDs must be unique.
func (m *Model) Add(ds core.Dataset) error {
	if ds.ID == "" {
		return fmt.Errorf("calendar: add dataset: empty id")
	}
	if m.find(ds.ID) != nil {
		return fmt.Errorf("calendar: add dataset %q: %w", ds.ID, ErrDuplicateDataset)
	}
	ds.Cells = copyCells(ds.Cells, nil)
	m.datasets = append(m.datasets, &ds)
	return nil
}

// Clone adds a dataset whose cells are a deep copy of source, with
// transform applied to every non-null value. Edits never propagate between
// the two.
func (m *Model) Clone(source string, ds core.Dataset, transform Transform) error {
	src := m.find(source)
	if src == nil {
		return fmt.Errorf("calendar: clone %q: %w", source, ErrUnknownDataset)
	}
	ds.Cells = copyCells(src.Cells, transform)
	if err := m.Add(ds); err != nil {
		return err
	}
	m.clones[ds.ID] = cloneSpec{source: source, transform: transform}
	return nil
}

// AddDemoOverlay adds the hidden demo series: the primary shifted up by 5.
func (m *Model) AddDemoOverlay() error {
	return m.Clone(PrimaryID, core.Dataset{
		ID:    DemoID,
		Name:  "Target (demo)",
		Style: core.DatasetStyle{Color: "#d9534f", Hue: 2, StrokeWidth: 2},
	}, func(v float64) float64 { return v + 5 })
}

// Toggle flips a dataset's visibility and reports the new state.
func (m *Model) Toggle(id string) (bool, error) {
	ds := m.find(id)
	if ds == nil {
		return false, fmt.Errorf("calendar: toggle %q: %w", id, ErrUnknownDataset)
	}
	ds.Visible = !ds.Visible
	return ds.Visible, nil
}

// Dataset returns a snapshot of the dataset. The cell slice is shared and
// must be treated as read-only.
func (m *Model) Dataset(id string) (core.Dataset, bool) {
	ds := m.find(id)
	if ds == nil {
		return core.Dataset{}, false
	}
	return *ds, true
}

func (m *Model) Datasets() []core.Dataset {
	out := make([]core.Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		out = append(out, *ds)
	}
	return out
}

func (m *Model) Visible() []core.Dataset {
	out := make([]core.Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		if ds.Visible {
			out = append(out, *ds)
		}
	}
	return out
}

func (m *Model) Primary() core.Dataset {
	return *m.datasets[0]
}

// SetValue edits the primary dataset in place and returns the cell's date key.
func (m *Model) SetValue(idx int, value *float64) (string, error) {
	cells := m.datasets[0].Cells
	if idx < 0 || idx >= len(cells) || !cells[idx].IsReal() || cells[idx].DateKey == "" {
		return "", fmt.Errorf("calendar: set value at %d: %w", idx, ErrNotEditable)
	}
	if value != nil {
		value = core.Float(*value)
	}
	cells[idx].Value = value
	return cells[idx].DateKey, nil
}

func (m *Model) TodayIndex() int {
	return m.todayIndex
}

func (m *Model) find(id string) *core.Dataset {
	i := slices.IndexFunc(m.datasets, func(ds *core.Dataset) bool { return ds.ID == id })
	if i < 0 {
		return nil
	}
	return m.datasets[i]
}

func copyCells(cells []core.CalendarCell, transform Transform) []core.CalendarCell {
	if cells == nil {
		return nil
	}
	out := make([]core.CalendarCell, len(cells))
	for i, c := range cells {
		if c.Value != nil {
			v := *c.Value
			if transform != nil {
				v = transform(v)
			}
			c.Value = &v
		}
		out[i] = c
	}
	return out
}
