// Package main writes synthetic galaxy catalogs for exercising the quenching finder.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/chrissnell/quenchfinder/internal/catalog"
	"github.com/chrissnell/quenchfinder/pkg/config"
)

func main() {
	var (
		output     = flag.String("output", "catalog.msgpack", "Catalog to write (.json for JSON, anything else for MessagePack)")
		count      = flag.Int("count", 1000, "Number of galaxies")
		snapshots  = flag.Int("snapshots", DefaultParams.Snapshots, "Snapshots per galaxy")
		quenchFrac = flag.Float64("quench-fraction", 0.4, "Fraction of galaxies that quench")
		rejuvFrac  = flag.Float64("rejuvenation-fraction", 0.1, "Fraction of galaxies that quench and rejuvenate")
		noise      = flag.Float64("noise", DefaultParams.Noise, "Lognormal scatter of the sSFR")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	if *count <= 0 || *snapshots < 4 {
		log.Fatalf("need a positive -count and at least 4 -snapshots")
	}
	if *quenchFrac < 0 || *rejuvFrac < 0 || *quenchFrac+*rejuvFrac > 1 {
		log.Fatalf("fractions must be non-negative and sum to at most 1")
	}

	p := DefaultParams
	p.Snapshots = *snapshots
	p.Noise = *noise

	galaxies := NewSimulator(p, *seed).Population(*count, *quenchFrac, *rejuvFrac)

	format := config.FormatFromPath(*output)
	source := fmt.Sprintf("galaxy-simulator seed=%d", *seed)
	if err := catalog.Save(*output, format, source, galaxies); err != nil {
		log.Fatalf("could not write catalog: %v", err)
	}

	fmt.Fprintf(os.Stdout, "wrote %d galaxies (%d snapshots each) to %s as %s\n", len(galaxies), p.Snapshots, *output, format)
}
