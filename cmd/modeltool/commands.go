package main

import (
	"fmt"
	"sort"
	"sync"
	"text/tabwriter"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vismodel/internal/catalog"
	"github.com/Faultbox/vismodel/internal/config"
	"github.com/Faultbox/vismodel/pkg/formats"
)

type infoReport struct {
	Model     string   `yaml:"model"`
	Size      int64    `yaml:"size"`
	Materials int      `yaml:"materials"`
	Versions  []uint16 `yaml:"material_versions,flow"`
	Meshes    int      `yaml:"meshes"`
	Vertices  int      `yaml:"vertices"`
	Triangles int      `yaml:"triangles"`
	Skeletons int      `yaml:"skeletons"`
	Bones     int      `yaml:"bones"`
	Weights   int      `yaml:"weight_chunks"`
	Submeshes int      `yaml:"submeshes"`
}

func cmdInfo(a *app) error {
	name := a.args[0]
	m, size, err := a.decode(name)
	if err != nil {
		return err
	}

	r := infoReport{
		Model:     name,
		Size:      size,
		Materials: len(m.Materials),
		Meshes:    len(m.Meshes),
		Vertices:  m.TotalVertexCount(),
		Triangles: m.TotalTriangleCount(),
		Skeletons: len(m.Skeletons),
		Weights:   m.WeightChunks,
	}
	seen := make(map[uint16]bool)
	for _, mat := range m.Materials {
		if !seen[mat.Version] {
			seen[mat.Version] = true
			r.Versions = append(r.Versions, mat.Version)
		}
	}
	sort.Slice(r.Versions, func(i, j int) bool { return r.Versions[i] < r.Versions[j] })
	for _, s := range m.Skeletons {
		r.Bones += len(s.Bones)
	}
	for _, b := range m.SubmeshTables {
		r.Submeshes += len(b.Submeshes)
	}

	if a.cfg.Output.Format == config.FormatYAML {
		return a.writeYAML(r)
	}
	fmt.Fprintf(a.out, "Model:     %s\n", r.Model)
	fmt.Fprintf(a.out, "Size:      %d bytes\n", r.Size)
	fmt.Fprintf(a.out, "Materials: %d (versions %v)\n", r.Materials, r.Versions)
	fmt.Fprintf(a.out, "Meshes:    %d (%d vertices, %d triangles)\n", r.Meshes, r.Vertices, r.Triangles)
	fmt.Fprintf(a.out, "Skeletons: %d (%d bones, %d weight chunks)\n", r.Skeletons, r.Bones, r.Weights)
	fmt.Fprintf(a.out, "Submeshes: %d\n", r.Submeshes)
	return nil
}

type materialRow struct {
	Slot         int    `yaml:"slot"`
	Name         string `yaml:"name"`
	Version      uint16 `yaml:"version"`
	SortKey      uint32 `yaml:"sort_key"`
	Transparency string `yaml:"transparency"`
	Diffuse      string `yaml:"diffuse"`
}

func cmdMaterials(a *app) error {
	m, _, err := a.decode(a.args[0])
	if err != nil {
		return err
	}

	rows := make([]materialRow, len(m.Materials))
	for i, mat := range m.Materials {
		rows[i] = materialRow{
			Slot:         i,
			Name:         mat.Name,
			Version:      mat.Version,
			SortKey:      mat.SortKey,
			Transparency: mat.Transparency.String(),
			Diffuse:      mat.DiffuseMap,
		}
	}

	if a.cfg.Output.Format == config.FormatYAML {
		return a.writeYAML(rows)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tVER\tSORT\tTRANSPARENCY\tDIFFUSE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n", r.Slot, r.Name, r.Version, r.SortKey, r.Transparency, r.Diffuse)
	}
	return tw.Flush()
}

func cmdDump(a *app) error {
	m, _, err := a.decode(a.args[0])
	if err != nil {
		return err
	}
	return a.writeYAML(newDump(m))
}

func (a *app) writeYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing yaml: %w", err)
	}
	return enc.Close()
}

type decodeResult struct {
	name  string
	model *formats.Model
	size  int64
	err   error
}

// decodeAll decodes files on cfg.Decode.Workers goroutines and returns the
// results in input order. Models are dropped unless keep is set.
func (a *app) decodeAll(files []string, keep bool) []decodeResult {
	results := make([]decodeResult, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < a.cfg.Decode.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				m, size, err := a.decode(files[i])
				if !keep {
					m = nil
				}
				results[i] = decodeResult{name: files[i], model: m, size: size, err: err}
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func cmdCheck(a *app) error {
	files, err := a.targets()
	if err != nil {
		return err
	}

	var errs error
	for _, r := range a.decodeAll(files, false) {
		if r.err != nil {
			fmt.Fprintf(a.out, "FAIL  %s: %v\n", r.name, r.err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		fmt.Fprintf(a.out, "ok    %s\n", r.name)
	}

	failed := len(multierr.Errors(errs))
	fmt.Fprintf(a.out, "\n%d files, %d failed\n", len(files), failed)
	if failed > 0 {
		a.log.Warn("check found undecodable models", zap.Int("failed", failed))
	}
	return errs
}

func cmdIndex(a *app) error {
	files, err := a.targets()
	if err != nil {
		return err
	}

	c, err := catalog.Open(a.cfg.Catalog.Path, a.log.Named("catalog"))
	if err != nil {
		return err
	}
	defer c.Close()

	var errs error
	indexed := 0
	// sqlite has a single writer, so only decoding runs in parallel
	for _, r := range a.decodeAll(files, true) {
		if r.err == nil {
			r.err = c.Index(r.name, r.size, r.model)
		}
		if r.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.name, r.err))
			continue
		}
		indexed++
	}

	fmt.Fprintf(a.out, "Indexed %d of %d models into %s\n", indexed, len(files), a.cfg.Catalog.Path)
	return errs
}

// cmdConfig prints the effective configuration. "config save [path]" writes it
// to path, or to the user config directory.
func cmdConfig(a *app) error {
	if len(a.args) == 0 {
		return a.writeYAML(a.cfg)
	}
	if a.args[0] != "save" || len(a.args) > 2 {
		return fmt.Errorf("%w: modeltool config [save [path]]", errUsage)
	}

	path := config.UserConfigPath()
	var err error
	if len(a.args) == 2 {
		path = a.args[1]
		err = a.cfg.SaveTo(path)
	} else {
		err = a.cfg.Save()
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	a.log.Info("config saved", zap.String("path", path))
	fmt.Fprintf(a.out, "Saved config to %s\n", path)
	return nil
}
