// Command robusttree grows a single regression tree from a gradient
// file and a feature matrix, using the updater named in its config, and
// can render the result to a graph file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/goccy/go-graphviz"

	"github.com/tarstars/robust_colmaker/robust"
)

func decodeConfig(srcConfig string, out interface{}) error {
	file, err := os.Open(srcConfig)
	if err != nil {
		return err
	}
	defer file.Close()
	return json.NewDecoder(file).Decode(out)
}

// BuildConfig is the "build" mode's JSON config: where the inputs come
// from, which registered updater to run, and where to write the result.
type BuildConfig struct {
	FeaturesFile    string           `json:"features_file"`
	GradientsFile   string           `json:"gradients_file"`
	Updater         string           `json:"updater"`
	Param           robust.TrainParam `json:"param"`
	Workers         int              `json:"workers"`
	OutputTreeFile  string           `json:"output_tree_file"`
	OutputGraphFile string           `json:"output_graph_file"`
}

func build(srcConfig string) error {
	var cfg BuildConfig
	if err := decodeConfig(srcConfig, &cfg); err != nil {
		return fmt.Errorf("decoding build config: %w", err)
	}

	dm, err := robust.LoadDMatrix(cfg.FeaturesFile)
	if err != nil {
		return err
	}
	gpair, err := robust.LoadGradients(cfg.GradientsFile)
	if err != nil {
		return err
	}

	if cfg.Param.Seed != 0 {
		robust.SeedGlobalRandom(cfg.Param.Seed)
	}

	evaluator, err := robust.NewSplitEvaluator(cfg.Param.SplitEvaluator, cfg.Param)
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := robust.NewPool(workers)
	logger := robust.NewLogger(nil)

	updater, err := robust.NewUpdater(cfg.Updater, cfg.Param, evaluator, pool, logger)
	if err != nil {
		return err
	}

	tree := robust.NewRegTree()
	if err := updater.Update(context.Background(), gpair, dm, tree); err != nil {
		return fmt.Errorf("growing tree: %w", err)
	}

	if cfg.OutputTreeFile != "" {
		f, err := os.Create(cfg.OutputTreeFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := json.NewEncoder(f).Encode(tree); err != nil {
			return fmt.Errorf("writing tree: %w", err)
		}
	}

	if cfg.OutputGraphFile != "" {
		gv, graph, err := tree.DrawGraph()
		if err != nil {
			return fmt.Errorf("rendering graph: %w", err)
		}
		if err := gv.RenderFilename(graph, graphviz.SVG, cfg.OutputGraphFile); err != nil {
			return fmt.Errorf("writing graph: %w", err)
		}
	}

	return nil
}

// RenderConfig is the "render" mode's JSON config: a previously built
// tree, re-drawn without re-growing it.
type RenderConfig struct {
	TreeFile        string `json:"tree_file"`
	OutputGraphFile string `json:"output_graph_file"`
}

func render(srcConfig string) error {
	var cfg RenderConfig
	if err := decodeConfig(srcConfig, &cfg); err != nil {
		return fmt.Errorf("decoding render config: %w", err)
	}

	f, err := os.Open(cfg.TreeFile)
	if err != nil {
		return err
	}
	defer f.Close()

	var tree robust.RegTree
	if err := json.NewDecoder(f).Decode(&tree); err != nil {
		return fmt.Errorf("reading tree: %w", err)
	}

	gv, graph, err := tree.DrawGraph()
	if err != nil {
		return fmt.Errorf("rendering graph: %w", err)
	}
	return gv.RenderFilename(graph, graphviz.SVG, cfg.OutputGraphFile)
}

func main() {
	runMode := flag.String("mode", "build", "either 'build' or 'render'")
	config := flag.String("config", "robusttree_config.json", "config file for the run")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")
	flag.Parse()

	modes := map[string]func(string) error{
		"build":  build,
		"render": render,
	}
	run, ok := modes[*runMode]
	if !ok {
		log.Fatalf("unknown mode %q", *runMode)
	}
	if err := run(*config); err != nil {
		log.Fatal(err)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
