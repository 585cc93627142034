// Command sblgnt builds and checks the data behind the SBLGNT viewer.
// It extracts verses from the corpus, maintains the viewer manifest,
// validates clause registries, and serves the data during development.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/sblgnt-viewer/core/clauses"
	"github.com/FocuswithJustin/sblgnt-viewer/core/payload"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/builder"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/config"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/corpus"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/inspect"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/server"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/store"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" help:"YAML config file (default: sblgnt.yaml when present)" type:"path"`
	TextRoot  string `name:"text-root" help:"Directory of plain-text corpus books" type:"path"`
	XMLRoot   string `name:"xml-root" help:"Directory of XML corpus books" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (text, json)"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// CLI defines the command-line interface for sblgnt.
type CLI struct {
	Globals

	Build   BuildCmd    `cmd:"" help:"Build a viewer payload and update the manifest"`
	Inspect InspectCmd  `cmd:"" help:"Print verses from the corpus"`
	Clauses ClauseGroup `cmd:"" help:"Clause registry operations"`
	Export  ExportGroup `cmd:"" help:"Export payloads to other stores"`
	Bundle  BundleCmd   `cmd:"" help:"Archive the viewer data directory"`
	Serve   ServeCmd    `cmd:"" help:"Serve viewer data with live manifest updates"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// ClauseGroup contains clause registry operations.
type ClauseGroup struct {
	Validate ClausesValidateCmd `cmd:"" help:"Validate a clause registry"`
}

// ExportGroup contains export operations.
type ExportGroup struct {
	SQLite ExportSQLiteCmd `cmd:"" name:"sqlite" help:"Export payloads into a SQLite database"`
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// setup loads the configuration, applies flag overrides, and initialises
// logging. The returned context carries a fresh run id.
func (g *Globals) setup() (context.Context, *config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	cfg.Merge(&config.Config{
		Corpus: config.CorpusConfig{TextRoot: g.TextRoot, XMLRoot: g.XMLRoot},
		Log:    config.LogConfig{Level: g.LogLevel, Format: g.LogFormat},
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.InitLogger(level, format, g.stderr())

	ctx := logging.WithRunID(context.Background(), uuid.NewString())
	return ctx, cfg, nil
}

// BuildCmd builds one book payload.
type BuildCmd struct {
	Input       string `arg:"" help:"Corpus book file to parse" type:"existingfile"`
	Output      string `arg:"" optional:"" help:"Destination JSON file (default: <data_dir>/<book id>.json)" type:"path"`
	Source      string `help:"Input format" enum:"text,xml" default:"text"`
	DisplayName string `name:"display-name" help:"Human-friendly book name (default: input file stem)"`
	BookID      string `name:"book-id" help:"Stable book identifier (default: lower-case input file stem)"`
	Manifest    string `help:"Manifest to update (default: <output dir>/manifest.json)" type:"path"`
}

func (c *BuildCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	output := c.Output
	manifestPath := c.Manifest
	if output == "" {
		bookID := c.BookID
		if bookID == "" {
			bookID = strings.ToLower(strings.TrimSuffix(filepath.Base(c.Input), filepath.Ext(c.Input)))
		}
		output = filepath.Join(cfg.Output.DataDir, bookID+".json")
		if manifestPath == "" {
			manifestPath = cfg.ManifestPath()
		}
	}

	res, err := builder.Build(ctx, builder.BuildConfig{
		Input:       c.Input,
		Output:      output,
		Source:      corpus.Kind(c.Source),
		DisplayName: c.DisplayName,
		BookID:      c.BookID,
		Manifest:    manifestPath,
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Fprintf(g.stdout(), "Wrote %s (%d verses) to %s\n", res.Payload.BookID, len(res.Payload.Verses), res.PayloadPath)
	fmt.Fprintf(g.stdout(), "Updated %s (%d books)\n", res.ManifestPath, len(res.Manifest.Books))
	return nil
}

// InspectCmd prints verses from the corpus.
type InspectCmd struct {
	Book           string `help:"Book identifier to inspect" default:"Mark"`
	Source         string `help:"Corpus to read" enum:"xml,text" default:"xml"`
	Limit          int    `help:"Maximum number of verses to print (0 for all)" default:"20"`
	Start          string `help:"Start printing at the first reference beginning with this value"`
	Contains       string `help:"Only print verses containing this substring"`
	ListBooks      bool   `name:"list-books" help:"List available books and exit"`
	ShowParagraphs bool   `name:"show-paragraphs" help:"Show XML paragraph indices next to references"`
	Width          int    `help:"Wrap column for verse text" default:"88"`
	Summary        bool   `help:"Print verse and markup counts after the verses"`
}

func (c *InspectCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	opts := inspect.Options{
		Book:           c.Book,
		Source:         c.Source,
		Limit:          c.Limit,
		Start:          c.Start,
		Contains:       c.Contains,
		ListBooks:      c.ListBooks,
		ShowParagraphs: c.ShowParagraphs,
		Width:          c.Width,
		Summary:        c.Summary,
	}
	roots := corpus.Config{TextRoot: cfg.Corpus.TextRoot, XMLRoot: cfg.Corpus.XMLRoot}
	return inspect.Run(ctx, roots, opts, g.stdout(), g.stderr())
}

// ClausesValidateCmd checks a clause registry.
type ClausesValidateCmd struct {
	Registry string `arg:"" help:"Clause registry JSON file" type:"existingfile"`
	Payload  string `help:"Book payload to check alignment against" type:"existingfile"`
}

func (c *ClausesValidateCmd) Run(g *Globals) error {
	ctx, _, err := g.setup()
	if err != nil {
		return err
	}

	reg, err := clauses.Load(c.Registry)
	if err != nil {
		return err
	}

	var verses []sblgnt.Verse
	if c.Payload != "" {
		p, err := payload.Read(c.Payload)
		if err != nil {
			return err
		}
		verses = p.Verses
	}

	report := clauses.Validate(reg, verses)
	for _, v := range report.Violations {
		fmt.Fprintln(g.stdout(), v.String())
	}
	if !report.OK() {
		logging.WarnContext(ctx, "clause registry invalid", "registry", c.Registry, "violations", len(report.Violations))
		return fmt.Errorf("%s: %d violations: %w", c.Registry, len(report.Violations), report.Err())
	}

	fmt.Fprintf(g.stdout(), "%s: %d clauses OK\n", c.Registry, len(reg.Clauses))
	return nil
}

// ExportSQLiteCmd writes payloads into a SQLite database.
type ExportSQLiteCmd struct {
	Payloads []string `arg:"" help:"Book payload JSON files" type:"existingfile"`
	DB       string   `name:"db" required:"" help:"SQLite database path" type:"path"`
}

func (c *ExportSQLiteCmd) Run(g *Globals) error {
	ctx, _, err := g.setup()
	if err != nil {
		return err
	}

	db, err := store.Open(ctx, c.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range c.Payloads {
		p, err := payload.Read(path)
		if err != nil {
			return err
		}
		if err := store.Export(ctx, db, p); err != nil {
			return fmt.Errorf("export %s: %w", path, err)
		}
		fmt.Fprintf(g.stdout(), "Exported %s (%d verses)\n", p.BookID, len(p.Verses))
	}

	info := store.GetInfo()
	logging.InfoContext(ctx, "sqlite_export", "db", c.DB, "books", len(c.Payloads), "driver", info.Package)
	return nil
}

// BundleCmd archives the viewer data directory.
type BundleCmd struct {
	DataDir  string `arg:"" optional:"" name:"data-dir" help:"Viewer data directory (default: output.data_dir)" type:"path"`
	Out      string `required:"" help:"Destination .tar.xz or .tar.gz file" type:"path"`
	Manifest string `help:"Manifest to check (default: <data-dir>/manifest.json)" type:"path"`
}

func (c *BundleCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}

	dataDir := c.DataDir
	manifestPath := c.Manifest
	if dataDir == "" {
		dataDir = cfg.Output.DataDir
		if manifestPath == "" {
			manifestPath = cfg.ManifestPath()
		}
	}

	names, err := builder.Bundle(ctx, builder.BundleConfig{DataDir: dataDir, Out: c.Out, Manifest: manifestPath})
	if err != nil {
		return fmt.Errorf("bundle failed: %w", err)
	}
	for _, name := range names {
		fmt.Fprintln(g.stdout(), name)
	}
	fmt.Fprintf(g.stdout(), "Wrote %s (%d files)\n", c.Out, len(names))
	return nil
}

// ServeCmd runs the development server.
type ServeCmd struct {
	Addr     string `help:"Listen address (default: server.addr)"`
	DataDir  string `name:"data-dir" help:"Viewer data directory (default: output.data_dir)" type:"path"`
	Manifest string `help:"Manifest to watch (default: <data-dir>/manifest.json)" type:"path"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cfg, err := g.setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg := server.Config{
		Addr:           cfg.Server.Addr,
		DataDir:        cfg.Output.DataDir,
		ManifestPath:   c.Manifest,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if c.Addr != "" {
		srvCfg.Addr = c.Addr
	}
	if c.DataDir != "" {
		srvCfg.DataDir = c.DataDir
	} else if srvCfg.ManifestPath == "" {
		srvCfg.ManifestPath = cfg.ManifestPath()
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "Serving %s at http://%s%s\n", srvCfg.DataDir, displayAddr(srvCfg.Addr), srv.DataPrefix())
	return srv.Run(ctx)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := store.GetInfo()
	fmt.Fprintf(g.stdout(), "sblgnt version %s (sqlite: %s, %s)\n", version, info.Package, info.DriverType)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sblgnt"),
		kong.Description("SBLGNT viewer data toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
