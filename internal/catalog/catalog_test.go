package catalog

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chrissnell/quenchfinder/internal/galaxy"
)

func testGalaxies() []*galaxy.Galaxy {
	interp := galaxy.Series{
		Mass: []float64{2e10, 2.1e10},
		SFR:  []float64{1, 0.5},
		SSFR: []float64{5e-11, 2.4e-11},
		Time: []float64{2.0, 2.001},
	}
	return []*galaxy.Galaxy{
		{
			ID: 1,
			Raw: galaxy.Series{
				Mass:     []float64{1e10, 2e10, 3e10},
				SFR:      []float64{10, 1, 0.01},
				Time:     []float64{1, 2, 3},
				Redshift: []float64{5, 3, 2},
				Position: [][3]float64{{1, 2, 3}, {1, 2, 3.5}, {1, 2, 4}},
			},
			Interpolated:   &interp,
			QuenchEpisodes: []galaxy.QuenchEpisode{{AboveIndex: 0, BelowIndex: 1, Finalized: true, Duration: 0.4, ResolvedIndex: 2}},
			Rejuvenations:  []int{2},
		},
		{
			ID:  2,
			Raw: galaxy.Series{Mass: []float64{1e9}, SFR: []float64{1}, Time: []float64{13.7}},
		},
	}
}

func TestSaveLoad(t *testing.T) {
	for _, format := range []string{FormatMsgPack, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog."+format)
			want := testGalaxies()

			if err := Save(path, format, "test", want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path, format)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load = %+v, expected %+v", got, want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format string
		target error
	}{
		{name: "unknown format", input: `{}`, format: "hdf5", target: ErrUnknownFormat},
		{name: "newer version", input: `{"version": 9, "galaxies": []}`, format: FormatJSON, target: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
		})
	}

	if _, err := Decode(strings.NewReader(`{"version": 1, "galaxies": [null]}`), FormatJSON); err == nil {
		t.Errorf("expected an error for a null galaxy")
	}
}

func TestEncodeSetsVersion(t *testing.T) {
	var buf bytes.Buffer
	f := &File{}
	if err := Encode(&buf, FormatJSON, f); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if f.Version != CurrentVersion || !strings.Contains(buf.String(), `"version": 1`) {
		t.Errorf("version not written: %s", buf.String())
	}
}
