// Package export writes the current plan as CSV rows or a JSON snapshot.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

// SeriesEntry is the projected series of one SKU.
type SeriesEntry struct {
	SKUKey domain.SKUKey        `json:"sku_key"`
	Status domain.Status        `json:"status"`
	Months []planning.MonthView `json:"months"`
}

// OverridePair encodes as a [sku, month, value] array.
type OverridePair planning.OverridePair

// MarshalJSON implements json.Marshaler.
func (p OverridePair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.SKU, p.Month, p.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *OverridePair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("override pair: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.SKU); err != nil {
		return fmt.Errorf("override pair sku: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Month); err != nil {
		return fmt.Errorf("override pair month: %w", err)
	}
	if err := json.Unmarshal(raw[2], &p.Value); err != nil {
		return fmt.Errorf("override pair value: %w", err)
	}
	return nil
}

// Snapshot is the full bundle with the current series.
type Snapshot struct {
	GeneratedAt time.Time              `json:"generated_at"`
	EditVersion uint64                 `json:"edit_version"`
	Metadata    domain.Metadata        `json:"metadata"`
	Registry    []domain.RegistryEntry `json:"registry"`
	Series      []SeriesEntry          `json:"series"`
	Overrides   []OverridePair         `json:"overrides"`
}

// FromPlanner recomputes every SKU and captures the plan.
func FromPlanner(ctx context.Context, p *planning.Planner, now time.Time) (*Snapshot, error) {
	ix, err := p.Index()
	if err != nil {
		return nil, err
	}
	edits := p.Edits().Snapshot()
	all, err := p.RecomputeAll(ctx)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		GeneratedAt: now.UTC(),
		EditVersion: edits.Version,
		Metadata:    ix.Metadata,
		Registry:    make([]domain.RegistryEntry, 0, len(ix.SKUs)),
		Series:      make([]SeriesEntry, 0, len(ix.SKUs)),
		Overrides:   make([]OverridePair, 0, edits.Count()),
	}
	for _, sku := range ix.SKUs {
		entry, _ := ix.Entry(sku)
		s.Registry = append(s.Registry, entry)
		s.Series = append(s.Series, seriesEntry(sku, ix.Keys, all[sku]))
	}
	for _, pair := range edits.Pairs() {
		s.Overrides = append(s.Overrides, OverridePair(pair))
	}
	return s, nil
}

func seriesEntry(sku domain.SKUKey, keys []calendar.MonthKey, s projection.Series) SeriesEntry {
	e := SeriesEntry{
		SKUKey: sku,
		Status: projection.ClassifyStatus(s, keys),
		Months: make([]planning.MonthView, len(keys)),
	}
	for i, k := range keys {
		e.Months[i] = planning.MonthView{Month: k, MonthRecord: s[k]}
	}
	return e
}

// WriteSnapshot encodes s as indented JSON.
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"sku_key",
	"product_code",
	"product_name",
	"category",
	"supplier",
	"distribution_center",
	"status",
	"month",
	"demand",
	"projected",
	"objective",
	"order",
	"arrival",
	"overridden",
}

// WriteCSV writes one row per (SKU, month) with the registry attributes
// repeated on every row.
func WriteCSV(w io.Writer, s *Snapshot) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for i, series := range s.Series {
		entry := s.Registry[i]
		for _, m := range series.Months {
			record := []string{
				string(entry.Key),
				entry.ProductCode,
				entry.ProductName,
				entry.Category,
				entry.Supplier,
				entry.DistributionCenter,
				string(series.Status),
				string(m.Month),
				strconv.Itoa(m.Demand),
				strconv.Itoa(m.Projected),
				strconv.Itoa(m.Objective),
				strconv.Itoa(m.Order),
				strconv.Itoa(m.Arrival),
				strconv.FormatBool(m.Overridden),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// Publish uploads the snapshot under prefix/<reference month>/ and returns
// its key.
func Publish(ctx context.Context, store storage.ObjectStorage, prefix string, s *Snapshot) (string, error) {
	month := "unknown"
	if len(s.Metadata.MonthKeys) > 0 {
		month = string(s.Metadata.MonthKeys[0])
	}
	key := path.Join(prefix, month, "snapshot-"+s.GeneratedAt.Format("20060102T150405Z")+".json")

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}
