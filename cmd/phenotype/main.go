// Phenotype inspection tool - grows a body from a DNA sequence and prints
// its segment tree, brain personality and total mass.
//
// Usage: go run ./cmd/phenotype -dna <base64> [-type minion]
//
//	go run ./cmd/phenotype -random -seed 7
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/config"
	"github.com/pthm-cable/minions/genome"
	"github.com/pthm-cable/minions/geom"
	"github.com/pthm-cable/minions/phenotype"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	dnaFlag := flag.String("dna", "", "Base64 DNA sequence")
	typeFlag := flag.String("type", "minion", "Agent type: resource, minion, player, spore")
	random := flag.Bool("random", false, "Use a random sequence instead of -dna")
	seed := flag.Int64("seed", 1, "RNG seed for -random")
	length := flag.Int("length", 0, "Random sequence length (0 = genome.seed_length)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	kind, err := parseType(*typeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var dna genome.Dna
	switch {
	case *random:
		n := *length
		if n <= 0 {
			n = config.Cfg().Genome.SeedLength
		}
		dna = genome.RandomDna(rand.New(rand.NewSource(*seed)), n)
	case *dnaFlag != "":
		dna, err = genome.ParseDna(*dnaFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dna: %v\n", err)
			os.Exit(2)
		}
	default:
		fmt.Fprintln(os.Stderr, "one of -dna or -random is required")
		flag.Usage()
		os.Exit(2)
	}

	a := phenotype.Develop(kind, genome.New(dna), agent.NewID(kind, 0), geom.Transform{}, geom.Motion{}, 1)
	printAgent(a)
}

func parseType(s string) (agent.Type, error) {
	for _, t := range agent.Types {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown agent type %q", s)
}

func printAgent(a *agent.Agent) {
	fmt.Printf("%v  gender=%d  dna=%d bytes\n", a.ID.Type, a.Gender, a.Dna.Len())
	fmt.Printf("max energy %.2f\n", a.Limits.MaxEnergy)

	var mass float64
	for i := range a.Segments {
		seg := &a.Segments[i]
		mass += seg.Material.Density * seg.Mesh.Area()

		depth := 0
		for p := seg; p.Attachment != nil; p = &a.Segments[p.Attachment.Parent] {
			depth++
		}
		fmt.Printf("%s[%d] %v %v", strings.Repeat("  ", depth), seg.Index, seg.Mesh.Shape(), seg.Mesh.Winding())
		if seg.Attachment != nil {
			fmt.Printf(" @%d.v%d", seg.Attachment.Parent, seg.Attachment.ParentVertex)
		}
		if seg.Tags != 0 {
			fmt.Printf(" %v", seg.Tags)
		}
		if !seg.Mesh.Convex() {
			fmt.Print(" concave")
		}
		fmt.Println()
	}
	fmt.Printf("segments %d  mass %.3f\n", len(a.Segments), mass)

	if b := a.Brain; b != nil {
		p := b.Personality
		fmt.Printf("hunger %.3f  haste %.3f  prudence %.3f  fear %.3f  rest %.3f  thrust %.3f\n",
			p.Hunger, p.Haste, p.Prudence, p.Fear, p.Rest, p.Thrust)
	}
}
