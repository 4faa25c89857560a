package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaspsweep/internal/archive"
	"vaspsweep/internal/config"
	"vaspsweep/internal/execscript"
	"vaspsweep/internal/layout"
	"vaspsweep/internal/logging"
	"vaspsweep/internal/prompt"
	"vaspsweep/internal/pseudo"
	"vaspsweep/internal/source"
	"vaspsweep/internal/sweep"
)

type generateFlags struct {
	yes           bool
	dryRun        bool
	submit        bool
	promptTimeout time.Duration
}

func newGenerateCmd(g *globalFlags, stdin io.Reader) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the sweep bundles and run scripts",
		Long: `Generate runs the whole pipeline:
  1. Discover and load the baseline input from source.dir
  2. Resolve the pseudopotentials against the structure's species order
  3. Expand the loop axes into named bundles and check their consistency
  4. Write each bundle to <prefix>/<suffix>/<subdir>/<name>, asking before
     overwriting an existing directory
  5. Write one run script per bundle for the selected executor`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if g.verbose {
				level = "debug"
			}
			log, err := logging.New(level, cfg.Logging.Format, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			p := &pipeline{
				cfg:     cfg,
				flags:   f,
				log:     log,
				stdin:   stdin,
				stdout:  cmd.OutOrStdout(),
				stderr:  cmd.ErrOrStderr(),
				runID:   uuid.NewString(),
				started: time.Now().UTC(),
			}
			return p.run(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "overwrite existing bundle directories without asking")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the files as a txtar archive instead of writing them")
	cmd.Flags().BoolVar(&f.submit, "submit", false, "submit batch scripts after writing them")
	cmd.Flags().DurationVar(&f.promptTimeout, "prompt-timeout", 2*time.Minute, "how long to wait for an overwrite answer (0 waits forever)")
	return cmd
}

type pipeline struct {
	cfg    *config.Config
	flags  *generateFlags
	log    *zap.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	runID   string
	started time.Time
}

func (p *pipeline) run(ctx context.Context) error {
	cfg := p.cfg
	inline := cfg.InlineSettings()

	files, err := source.Discover(cfg.Source.Dir, source.Options{
		Overrides:      cfg.Source.Files,
		InlineSettings: inline != nil,
	}, p.log)
	if err != nil {
		return err
	}
	base, err := source.Load(files, inline, p.log)
	if err != nil {
		return err
	}
	pseudos, err := pseudo.Resolve(base.Structure.SiteSymbols(), base.Catalog, cfg.PseudoOptions(), p.log)
	if err != nil {
		return err
	}

	axes, err := cfg.Axes()
	if err != nil {
		return err
	}
	style, err := cfg.MeshStyle()
	if err != nil {
		return err
	}
	overrides, err := cfg.ParallelismOverrides()
	if err != nil {
		return err
	}
	bundles, err := sweep.Expand(base.Input(pseudos), axes, sweep.Options{
		BaseName:  cfg.BaseName(),
		MeshStyle: style,
		Overrides: overrides,
	}, p.log)
	if err != nil {
		return err
	}
	if err := sweep.Validate(bundles); err != nil {
		return err
	}

	root := layout.Root{
		Base:   ".",
		Prefix: cfg.Dir.Prefix.Parts(),
		Suffix: cfg.Dir.Suffix.Parts(),
		Subdir: cfg.Dir.Subdir.Parts(),
	}
	names := make([]string, len(bundles))
	for i, b := range bundles {
		names[i] = b.Name
	}
	dests := root.Destinations(names)

	profile, hasProfile, err := cfg.Profile()
	if err != nil {
		return err
	}

	if p.flags.dryRun {
		return p.dryRun(ctx, root, bundles, dests, profile, hasProfile)
	}

	policy := layout.Ask
	if p.flags.yes || cfg.Dir.Overwrite {
		policy = layout.Always
	}
	confirm := prompt.Confirmer{In: p.stdin, Out: p.stderr, Timeout: p.flags.promptTimeout}
	res, err := layout.Materialize(ctx, bundles, dests, policy, confirm, p.log)
	if err != nil {
		return err
	}
	if res.Written > 0 {
		if err := p.writeIndex(root.WorkDir(), axes, names[:res.Written]); err != nil {
			return err
		}
	}
	if res.Declined {
		p.log.Info(fmt.Sprintf("%d folder(s) written before %s", res.Written, res.Stopped))
	}

	// Scripts cover exactly the bundles on disk.
	written := dests[:res.Written]
	switch {
	case len(written) == 0:
	case !hasProfile:
		p.log.Warn("no executor specified - unable to write run scripts")
	default:
		if err := p.scripts(ctx, root.WorkDir(), written, profile); err != nil {
			return err
		}
	}

	p.log.Info(fmt.Sprintf("%d folder(s) total", res.Written))
	return nil
}

func (p *pipeline) scripts(ctx context.Context, workdir string, dests []layout.Destination, profile execscript.Profile) error {
	scripts, err := execscript.Compile(ctx, profile, dests, p.log)
	if err != nil {
		return err
	}
	if err := execscript.Write(scripts); err != nil {
		return err
	}
	p.log.Info(fmt.Sprintf("wrote %d run script(s) for executor %s", len(scripts), p.cfg.Executor))

	if p.cfg.Dispatch == config.DispatchTaskFarm {
		path, err := execscript.WriteManifest(workdir, execscript.NewManifest(p.runID, scripts))
		if err != nil {
			return err
		}
		p.log.Info("task manifest: " + path)
	}

	if !p.flags.submit && !p.cfg.Submit() {
		return nil
	}
	if _, batch := profile.(execscript.Batch); !batch {
		p.log.Warn("submission requested but executor " + p.cfg.Executor + " is not a batch executor")
		return nil
	}
	sub := execscript.Submitter{Timeout: p.cfg.SubmitTimeout(), Log: p.log}
	results := sub.Submit(ctx, scripts)
	if n := execscript.Failed(results); n > 0 {
		p.log.Warn(fmt.Sprintf("%d of %d submission(s) failed", n, len(results)))
	}
	return nil
}

func (p *pipeline) writeIndex(workdir string, axes []sweep.Axis, names []string) error {
	idx := layout.Index{
		RunID:    p.runID,
		Updated:  p.started,
		Prefix:   p.cfg.Dir.Prefix.Join(),
		Executor: p.cfg.Executor,
		Bundles:  names,
	}
	for _, a := range axes {
		idx.Axes = append(idx.Axes, a.String())
	}
	return layout.WriteIndex(workdir, idx)
}

// dryRun renders everything generate would write into one archive on stdout.
func (p *pipeline) dryRun(ctx context.Context, root layout.Root, bundles []sweep.Named, dests []layout.Destination, profile execscript.Profile, hasProfile bool) error {
	ar := archive.New(root.Base)
	for i, b := range bundles {
		files, err := b.Input.Files()
		if err != nil {
			return fmt.Errorf("render %s: %w", b.Name, err)
		}
		ar.AddDir(dests[i].Path, files)
		if _, err := os.Stat(dests[i].Path); err == nil {
			p.log.Warn(dests[i].Path + " exists")
		}
	}
	if hasProfile {
		scripts, err := execscript.Compile(ctx, profile, dests, p.log)
		if err != nil {
			return err
		}
		for _, s := range scripts {
			ar.Add(s.Path, []byte(s.Text))
		}
		if p.cfg.Dispatch == config.DispatchTaskFarm {
			data, err := execscript.NewManifest(p.runID, scripts).Marshal()
			if err != nil {
				return err
			}
			ar.Add(filepath.Join(root.WorkDir(), execscript.ManifestFile), data)
		}
	}
	comment := fmt.Sprintf("dry run: %d bundle(s) in %s\n", len(bundles), root.WorkDir())
	_, err := p.stdout.Write(ar.Format(comment))
	return err
}
