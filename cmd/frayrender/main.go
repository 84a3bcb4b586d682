// Command frayrender renders a WGSL scene to a PNG file headlessly.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/fray"
	"github.com/gogpu/fray/gpu"
)

func main() {
	var (
		scenePath   = flag.String("scene", "", "WGSL fragment shader for the scene (required)")
		probePath   = flag.String("probe", "", "WGSL fragment shader for the focus probe (optional)")
		output      = flag.String("output", "render.png", "output file")
		width       = flag.Int("width", 1280, "image width")
		height      = flag.Int("height", 720, "image height")
		subframes   = flag.Int("subframes", 64, "accumulated samples per pixel")
		timeSec     = flag.Float64("time", 0, "animation time in seconds")
		supersample = flag.Int("supersample", 1, "render scale multiplier before downscaling")
		tiles       = flag.Int("tiles", 1, "tile grid dimension (NxN)")
		tonemap     = flag.String("tonemap", "linear", "tone mapping: linear, reinhard, aces")
		exposure    = flag.Float64("exposure", 1, "exposure multiplier")
		verbose     = flag.Bool("verbose", false, "log renderer internals")
	)
	flag.Parse()

	if *scenePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		fray.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := run(*scenePath, *probePath, *output, *width, *height, *subframes, *timeSec, *supersample, *tiles, *tonemap, *exposure); err != nil {
		log.Fatalf("frayrender: %v", err)
	}
}

func run(scenePath, probePath, output string, width, height, subframes int, timeSec float64, supersample, tiles int, tonemap string, exposure float64) error {
	scene, err := loadScene(scenePath, probePath)
	if err != nil {
		return err
	}

	dev, err := gpu.New()
	if err != nil {
		return err
	}
	defer dev.Destroy()

	r, err := fray.New(dev)
	if err != nil {
		return err
	}
	defer r.Destroy()

	settings := fray.DefaultSettings()
	settings.TileCount = tiles
	settings.Post.Exposure = exposure
	switch tonemap {
	case "linear":
		settings.Post.ToneMapping = fray.ToneMapLinear
	case "reinhard":
		settings.Post.ToneMapping = fray.ToneMapReinhard
	case "aces":
		settings.Post.ToneMapping = fray.ToneMapACES
	default:
		return fmt.Errorf("unknown tonemap %q", tonemap)
	}
	if err := r.SetSettings(settings); err != nil {
		return err
	}

	if err := r.SetScene(scene); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	img, err := r.RenderStill(ctx, fray.StillOptions{
		Width:       width,
		Height:      height,
		Subframes:   subframes,
		TimeSeconds: timeSec,
		Supersample: supersample,
		Progress: func(p fray.ExportProgress) {
			fmt.Fprintf(os.Stderr, "\rrendering %3.0f%% (subframe %d/%d)", p.Fraction*100, p.Subframe, p.TotalSubframes)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", output, err)
	}
	log.Printf("Rendered %s (%dx%d, %d subframes)", output, width, height, subframes)
	return nil
}

// loadScene reads the fragment sources from disk. Each line maps back to
// itself: the file on disk is the original source.
func loadScene(scenePath, probePath string) (fray.SceneState, error) {
	scene, err := loadShader(scenePath)
	if err != nil {
		return fray.SceneState{}, err
	}
	state := fray.SceneState{Scene: scene, Probe: scene}
	if probePath != "" {
		probe, err := loadShader(probePath)
		if err != nil {
			return fray.SceneState{}, err
		}
		state.Probe = probe
	}
	return state, nil
}

func loadShader(path string) (fray.ShaderSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fray.ShaderSource{}, err
	}
	src := fray.ShaderSource{FragmentSource: string(data)}
	lines := 1
	for _, c := range data {
		if c == '\n' {
			lines++
		}
	}
	src.FragmentLineMap = make([]*fray.SourceRef, lines)
	for i := range src.FragmentLineMap {
		src.FragmentLineMap[i] = &fray.SourceRef{Path: path, Line: i + 1}
	}
	return src, nil
}
