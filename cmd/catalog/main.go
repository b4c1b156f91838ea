// Command catalog merges per-player JSON files into the bundle the server
// embeds. Players are written in file-name order so the output, and with it
// the daily challenge, is stable across runs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/playerid-backend/internal/catalog"
	"github.com/DoyleJ11/playerid-backend/internal/logging"
)

func main() {
	in := flag.String("in", "players", "directory of per-player JSON files")
	out := flag.String("out", "internal/catalog/data/players.json", "bundle to write")
	flag.Parse()

	logger := logging.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	players, err := build(*in, logger)
	if err != nil {
		logger.Fatal("build catalog", zap.Error(err))
	}
	if err := write(*out, players); err != nil {
		logger.Fatal("write catalog", zap.Error(err))
	}
	logger.Info("catalog written", zap.String("out", *out), zap.Int("players", len(players)))
}

func build(dir string, logger *zap.Logger) ([]catalog.Player, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	players := make([]catalog.Player, 0, len(files))
	for _, file := range files {
		p, err := readPlayer(file)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p.Name]; dup {
			logger.Warn("duplicate player name, keeping the first",
				zap.String("name", p.Name), zap.String("kept", prev), zap.String("skipped", file))
			continue
		}
		seen[p.Name] = file

		for i := range p.Career {
			p.Career[i].Years = catalog.NormalizeYears(p.Career[i].Years)
		}
		p.Career = catalog.MarkLoans(p.Career)
		if p.Difficulty == nil || p.Difficulty.Level == catalog.DifficultyAny {
			info := catalog.Grade(p.Career)
			p.Difficulty = &info
		}
		players = append(players, p)
	}
	return players, nil
}

func readPlayer(file string) (catalog.Player, error) {
	f, err := os.Open(file)
	if err != nil {
		return catalog.Player{}, err
	}
	defer f.Close()

	var p catalog.Player
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return catalog.Player{}, fmt.Errorf("%s: %w", file, err)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return catalog.Player{}, fmt.Errorf("%s: player has no name", file)
	}
	return p, nil
}

func write(path string, players []catalog.Player) error {
	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
