// Package main validates a content tree: every template file must parse,
// cross-references must resolve and every zone script must load.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/scripting"
)

func main() {
	root := flag.String("root", "content", "content root holding monsters/, items/, zones/, quests/ and scripts/")
	strict := flag.Bool("strict", false, "treat content problems as errors")
	flag.Parse()

	start := time.Now()
	lib, err := content.Load(content.Dirs{
		Monsters: filepath.Join(*root, "monsters"),
		Items:    filepath.Join(*root, "items"),
		Zones:    filepath.Join(*root, "zones"),
		Quests:   filepath.Join(*root, "quests"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	problems := lib.Problems()
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "problem: %s\n", p)
	}

	scripts := scripting.NewManager(dice.NewCryptoSource(), zap.NewNop())
	defer scripts.Close()
	failed := 0
	for _, z := range lib.Zones() {
		dir := z.ScriptPath(filepath.Join(*root, "scripts"))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := scripts.LoadZone(z.ID, dir, z.ScriptInstructionLimit); err != nil {
			fmt.Fprintf(os.Stderr, "script error: zone %s: %v\n", z.ID, err)
			failed++
		}
	}

	monsters, items, zones, quests := lib.Counts()
	fmt.Printf("%d monsters, %d items, %d zones, %d quests, %d problems in %s\n",
		monsters, items, zones, quests, len(problems), time.Since(start).Round(time.Millisecond))
	if failed > 0 || (*strict && len(problems) > 0) {
		os.Exit(1)
	}
}
