// Command aspire-tui runs one scene through the simulation engine and shows
// the reverberation time of each band in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/config"
	"github.com/dd0wney/aspire-acoustics/pkg/editor"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/signalchain"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
)

func main() {
	scenePath := flag.String("scene", "", "scene JSON or archive (.json.sz) to simulate")
	engineURL := flag.String("engine", "", "simulation engine URL (default from config)")
	simType := flag.String("type", "", "simulation type: "+typeList())
	flag.Parse()

	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "usage: aspire-tui -scene <file> [-engine url] [-type rt60_sabine]")
		os.Exit(2)
	}

	cfg := config.Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *engineURL != "" {
		cfg.Engine.URL = *engineURL
	}
	t := cfg.SimulationType()
	if *simType != "" {
		parsed, err := simulation.ParseType(*simType)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		t = parsed
	}

	sc, err := loadScene(*scenePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runner := simulation.NewRunner(simulation.RunnerConfig{
		Engine: simulation.NewClient(simulation.ClientConfig{
			BaseURL: cfg.Engine.URL,
			Timeout: cfg.Engine.Timeout,
		}),
		Transformer: cfg.Transformer(),
	})

	p := tea.NewProgram(newModel(sc, runner, t, cfg.Simulation.Bands), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "aspire-tui: %v\n", err)
		os.Exit(1)
	}
}

// loadScene reads a stored scene document or a scene archive.
func loadScene(path string) (scene.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scene.Scene{}, err
	}
	if strings.HasSuffix(path, ".sz") {
		a, err := scene.DecodeArchive(b)
		if err != nil {
			return scene.Scene{}, fmt.Errorf("%s: %w", path, err)
		}
		return a.Scene, nil
	}
	var sc scene.Scene
	if err := decodeJSON(b, &sc); err != nil {
		return scene.Scene{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// simulationInput is the room part of sc as the runner wants it. Speakers
// cut off from the simulation node in the stored chain are dropped.
func simulationInput(sc scene.Scene, t simulation.Type, bands []int) simulation.Input {
	chain := signalchain.Graph{Nodes: sc.InstrumentSetup.Nodes, Edges: sc.InstrumentSetup.Edges}
	faces := acoustics.NewFaceMaterials()
	if sc.GeometryData.Materials != nil {
		faces = *sc.GeometryData.Materials
	}
	return simulation.Input{
		SceneID:    sc.ID,
		Type:       t,
		Dimensions: sc.GeometryData.DimensionsOrDefault(),
		Faces:      &faces,
		Speakers:   editor.WiredSpeakers(chain, sc.SoundSourceData.Speakers),
		Bands:      bands,
	}
}

func typeList() string {
	var ids []string
	for _, info := range simulation.AvailableTypes() {
		ids = append(ids, string(info.ID))
	}
	return strings.Join(ids, ", ")
}
