package app

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/chrissnell/quenchfinder/internal/batch"
	"github.com/chrissnell/quenchfinder/internal/catalog"
	"github.com/chrissnell/quenchfinder/internal/galaxy"
	"github.com/chrissnell/quenchfinder/internal/storage/sqlite"
	"github.com/chrissnell/quenchfinder/pkg/config"
	"go.uber.org/zap"
)

func history(id int, ssfr []float64) *galaxy.Galaxy {
	n := len(ssfr)
	s := galaxy.Series{
		Time:     make([]float64, n),
		Mass:     make([]float64, n),
		SFR:      make([]float64, n),
		Redshift: make([]float64, n),
	}
	for i := range ssfr {
		s.Time[i] = 1.0 + 0.5*float64(i)
		s.Mass[i] = 1e10 * math.Pow(1.05, float64(i))
		s.SFR[i] = ssfr[i] * s.Mass[i]
	}
	return &galaxy.Galaxy{ID: id, Raw: s}
}

func testCatalog(t *testing.T, dir string) string {
	t.Helper()
	galaxies := []*galaxy.Galaxy{
		history(1, []float64{1e-9, 1e-9, 1e-10, 5e-11, 2e-11, 1e-12, 1e-12, 1e-12, 1e-12, 1e-12, 1e-12, 1e-12}),
		history(2, []float64{1e-9, 1e-9, 1e-9, 1e-9, 1e-9, 1e-9, 1e-9, 1e-9}),
	}
	path := filepath.Join(dir, "catalog.json")
	if err := catalog.Save(path, catalog.FormatJSON, "test", galaxies); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestScanPasses(t *testing.T) {
	tests := []struct {
		name   string
		finder config.FinderData
		passes []string
	}{
		{name: "raw only", finder: config.FinderData{Policy: "redshift", MassLimit: 10}, passes: []string{PassRaw}},
		{name: "refine", finder: config.FinderData{Policy: "redshift", MassLimit: 10, Refine: true}, passes: []string{PassRaw, PassRefine}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			galaxies, err := catalog.Load(testCatalog(t, t.TempDir()), catalog.FormatJSON)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			a := New(&config.ConfigData{Finder: tt.finder}, zap.NewNop().Sugar())
			passes, err := a.Scan(context.Background(), galaxies)
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if len(passes) != len(tt.passes) {
				t.Fatalf("got %d passes, expected %d", len(passes), len(tt.passes))
			}
			for i, p := range passes {
				if p.Name != tt.passes[i] {
					t.Errorf("pass %d = %s, expected %s", i, p.Name, tt.passes[i])
				}
				if p.Result.Summary.Total != 2 {
					t.Errorf("pass %s total = %d", p.Name, p.Result.Summary.Total)
				}
			}

			raw := passes[0].Result
			if raw.Summary.Outcomes[0] != batch.OutcomeQuenched || raw.Galaxies[0].Interpolated == nil {
				t.Errorf("raw pass should refine galaxy 1: %+v", raw.Summary)
			}
			if len(passes) == 2 && !passes[1].Result.Summary.Interpolation {
				t.Errorf("second pass should scan the interpolated variant")
			}
		})
	}
}

func TestScanUnknownPolicy(t *testing.T) {
	a := New(&config.ConfigData{Finder: config.FinderData{Policy: "steady_state"}}, zap.NewNop().Sugar())
	if _, err := a.Scan(context.Background(), []*galaxy.Galaxy{history(1, []float64{1e-9})}); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "results.db")
	outPath := filepath.Join(dir, "refined.msgpack")

	cfg := &config.ConfigData{
		Finder:  config.FinderData{Refine: true},
		Catalog: config.CatalogData{Path: testCatalog(t, dir), Output: outPath},
		Storage: config.StorageData{SQLite: &config.SQLiteData{Path: dbPath}},
	}

	if err := New(cfg, zap.NewNop().Sugar()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if cfg.Finder.Policy != config.DefaultPolicy || cfg.Catalog.Format != catalog.FormatJSON {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	out, err := catalog.Load(outPath, catalog.FormatMsgPack)
	if err != nil {
		t.Fatalf("Load output: %v", err)
	}
	if len(out) != 2 || out[0].Interpolated == nil {
		t.Errorf("unexpected output catalog: %d galaxies", len(out))
	}

	store, err := sqlite.New(dbPath, nil)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected one stored run per pass, got %d", len(runs))
	}
}

func TestRunInvalidConfig(t *testing.T) {
	err := New(&config.ConfigData{}, zap.NewNop().Sugar()).Run(context.Background())
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
