// Command regcache is the CLI tool for the asset-registry cache codec.
// It decodes registry cache blobs, verifies byte-exact round trips, and
// exports decoded registries to SQLite for downstream tooling.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/zeebo/blake3"

	"github.com/uetools/regcache/core/registry"
	"github.com/uetools/regcache/core/registrydb"
	"github.com/uetools/regcache/internal/blobio"
	"github.com/uetools/regcache/internal/logging"
)

const version = "0.2.0"

// Exit codes. Decode failures and round-trip mismatches are distinguished
// so scripts driving the reverse-engineering loop can tell them apart.
const (
	exitOK          = 0
	exitError       = 1
	exitDecodeError = 2
	exitMismatch    = 3
)

var (
	errDecode   = errors.New("decode failed")
	errMismatch = errors.New("round trip mismatch")
)

// CLI defines the command-line interface for regcache.
var CLI struct {
	// Global flags
	LogLevel string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogJSON  bool   `name:"log-json" help:"Emit logs as JSON"`

	Dump    DumpCmd    `cmd:"" help:"Decode a registry cache and print a structured dump"`
	Verify  VerifyCmd  `cmd:"" help:"Decode then re-encode and check for byte-identical output"`
	Export  ExportCmd  `cmd:"" help:"Decode a registry cache into a SQLite database"`
	Trace   TraceCmd   `cmd:"" help:"Decode with the byte-trace hook attached, writing JSONL events"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// DumpCmd decodes a registry cache and prints a structured dump.
type DumpCmd struct {
	Path string `arg:"" help:"Path to registry cache (.bin, .bin.gz, .bin.xz)" type:"existingfile"`
	JSON bool   `help:"Output as JSON"`
}

func (c *DumpCmd) Run() error {
	data, err := blobio.ReadFile(c.Path)
	if err != nil {
		return err
	}
	state, err := registry.Decode(data)
	if err != nil {
		logging.DecodeFailed(c.Path, err)
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	logging.RegistryDecoded(c.Path, state.Names.Len(), len(state.Assets), len(state.Depends), len(state.Packages))

	if c.JSON {
		return dumpJSON(state)
	}
	dumpText(c.Path, state)
	return nil
}

func dumpText(path string, state *registry.RegistryState) {
	fmt.Printf("Registry: %s\n", path)
	fmt.Printf("  Version: %d (%s)\n", uint32(state.Version.Ordinal), state.Version.Ordinal)
	fmt.Printf("  Custom versions: %d\n", len(state.Version.Customs))
	for _, cv := range state.Version.Customs {
		marker := ""
		if !registry.Confirmed(cv.Key) {
			marker = " (unconfirmed)"
		}
		fmt.Printf("    %s = %d%s\n", cv.Key, cv.Version, marker)
	}
	fmt.Printf("  Strings: %d\n", state.Names.Len())
	fmt.Printf("  Assets: %d\n", len(state.Assets))
	fmt.Printf("  Dependency nodes: %d\n", len(state.Depends))
	fmt.Printf("  Packages: %d\n", len(state.Packages))
	fmt.Println()

	for i, rec := range state.Assets {
		objectPath, _ := state.Names.Get(rec.ObjectPath)
		packageName, _ := state.Names.Get(rec.PackageName)
		class, _ := state.Names.Get(rec.AssetClass)
		fmt.Printf("  [%d] %s (%s) in %s\n", i, objectPath, class, packageName)
		for _, tag := range rec.Tags {
			key, _ := state.Names.Get(tag.Key)
			value, _ := state.Names.Get(tag.Value)
			fmt.Printf("      %s = %s\n", key, value)
		}
		if len(rec.ChunkIDs) > 0 {
			fmt.Printf("      chunks: %v\n", rec.ChunkIDs)
		}
	}
	if len(state.Assets) > 0 {
		fmt.Println()
	}

	for i := range state.Depends {
		node := &state.Depends[i]
		if len(node.Edges) == 0 {
			continue
		}
		fmt.Printf("  node %d (id %d):\n", i, node.Identifier)
		for _, e := range node.Edges {
			fmt.Printf("      -> %d [%s, flags %#x]\n", e.Target, e.Kind, e.Flags)
		}
	}
}

// dumpModel is the JSON shape of a decoded registry, with name indices
// resolved for readability.
type dumpModel struct {
	Version        uint32            `json:"version"`
	VersionName    string            `json:"version_name"`
	CustomVersions []dumpCustom      `json:"custom_versions"`
	Strings        []string          `json:"strings"`
	Assets         []dumpAsset       `json:"assets"`
	Depends        []dumpDependsNode `json:"depends"`
	Packages       []dumpPackage     `json:"packages"`
}

type dumpCustom struct {
	Key       string `json:"key"`
	Version   int32  `json:"version"`
	Confirmed bool   `json:"confirmed"`
}

type dumpAsset struct {
	ObjectPath  string            `json:"object_path"`
	PackageName string            `json:"package_name"`
	AssetClass  string            `json:"asset_class"`
	PackagePath string            `json:"package_path,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	ChunkIDs    []int32           `json:"chunk_ids,omitempty"`
	Flags       uint32            `json:"flags"`
}

type dumpDependsNode struct {
	Identifier uint32     `json:"identifier"`
	Edges      []dumpEdge `json:"edges,omitempty"`
}

type dumpEdge struct {
	Target uint32 `json:"target"`
	Kind   string `json:"kind"`
	Flags  uint8  `json:"flags"`
}

type dumpPackage struct {
	PackageName string `json:"package_name"`
	DiskSize    int64  `json:"disk_size"`
	Guid        string `json:"guid"`
	CookedHash  string `json:"cooked_hash"`
	Flags       uint32 `json:"flags"`
}

func dumpJSON(state *registry.RegistryState) error {
	model := dumpModel{
		Version:     uint32(state.Version.Ordinal),
		VersionName: state.Version.Ordinal.String(),
		Strings:     state.Names.Strings(),
	}
	for _, cv := range state.Version.Customs {
		model.CustomVersions = append(model.CustomVersions, dumpCustom{
			Key:       cv.Key.String(),
			Version:   cv.Version,
			Confirmed: registry.Confirmed(cv.Key),
		})
	}
	for _, rec := range state.Assets {
		a := dumpAsset{Flags: rec.Flags, ChunkIDs: rec.ChunkIDs}
		a.ObjectPath, _ = state.Names.Get(rec.ObjectPath)
		a.PackageName, _ = state.Names.Get(rec.PackageName)
		a.AssetClass, _ = state.Names.Get(rec.AssetClass)
		if state.Version.HasPackagePathAlias() {
			a.PackagePath, _ = state.Names.Get(rec.PackagePath)
		}
		if len(rec.Tags) > 0 {
			a.Tags = make(map[string]string, len(rec.Tags))
			for _, tag := range rec.Tags {
				key, _ := state.Names.Get(tag.Key)
				value, _ := state.Names.Get(tag.Value)
				a.Tags[key] = value
			}
		}
		model.Assets = append(model.Assets, a)
	}
	for i := range state.Depends {
		node := &state.Depends[i]
		d := dumpDependsNode{Identifier: node.Identifier}
		for _, e := range node.Edges {
			d.Edges = append(d.Edges, dumpEdge{Target: e.Target, Kind: e.Kind.String(), Flags: e.Flags})
		}
		model.Depends = append(model.Depends, d)
	}
	for _, p := range state.Packages {
		dp := dumpPackage{
			DiskSize:   p.DiskSize,
			Guid:       p.Guid.String(),
			CookedHash: hex.EncodeToString(p.CookedHash[:]),
			Flags:      p.Flags,
		}
		dp.PackageName, _ = state.Names.Get(p.PackageName)
		model.Packages = append(model.Packages, dp)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(model)
}

// VerifyCmd decodes then re-encodes a registry and compares the bytes.
// This is the primary validation workflow while reverse-engineering the
// format: any misjudged field width or version branch shows up here.
type VerifyCmd struct {
	Path string `arg:"" help:"Path to registry cache" type:"existingfile"`
}

func (c *VerifyCmd) Run() error {
	data, err := blobio.ReadFile(c.Path)
	if err != nil {
		return err
	}

	state, err := registry.Decode(data)
	if err != nil {
		logging.DecodeFailed(c.Path, err)
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	out, err := state.Encode()
	if err != nil {
		return err
	}

	inSum := blake3.Sum256(data)
	outSum := blake3.Sum256(out)

	fmt.Printf("Registry: %s\n", c.Path)
	fmt.Printf("  Input:  %d bytes, blake3 %s\n", len(data), hex.EncodeToString(inSum[:]))
	fmt.Printf("  Output: %d bytes, blake3 %s\n", len(out), hex.EncodeToString(outSum[:]))

	if err := registry.VerifyRoundTrip(data); err != nil {
		fmt.Println("Result: FAIL")
		return fmt.Errorf("%w: %v", errMismatch, err)
	}
	fmt.Println("Result: PASS")
	return nil
}

// ExportCmd decodes a registry cache into a SQLite database.
type ExportCmd struct {
	Path string `arg:"" help:"Path to registry cache" type:"existingfile"`
	DB   string `required:"" help:"Output SQLite database path" type:"path"`
}

func (c *ExportCmd) Run() error {
	data, err := blobio.ReadFile(c.Path)
	if err != nil {
		return err
	}
	state, err := registry.Decode(data)
	if err != nil {
		logging.DecodeFailed(c.Path, err)
		return fmt.Errorf("%w: %v", errDecode, err)
	}

	// Refuse to clobber an existing database.
	if _, err := os.Stat(c.DB); err == nil {
		return fmt.Errorf("output database already exists: %s", c.DB)
	}

	db, err := registrydb.Open(c.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := registrydb.Export(db, state, registrydb.SourceInfo{Path: c.Path, Data: data}); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	fmt.Printf("Exported: %s\n", c.DB)
	fmt.Printf("  Driver: %s (%s)\n", registrydb.DriverName(), registrydb.DriverType())
	fmt.Printf("  Strings: %d\n", state.Names.Len())
	fmt.Printf("  Assets: %d\n", len(state.Assets))
	fmt.Printf("  Dependency nodes: %d\n", len(state.Depends))
	fmt.Printf("  Packages: %d\n", len(state.Packages))
	return nil
}

// TraceCmd decodes with the cursor instrumentation hook attached and
// writes one JSONL event per primitive read. The events are everything the
// external byte-range visualizer consumes.
type TraceCmd struct {
	Path string `arg:"" help:"Path to registry cache" type:"existingfile"`
	Out  string `required:"" help:"Output JSONL path" type:"path"`
}

// traceEvent is one primitive cursor operation in read order.
type traceEvent struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Label  string `json:"label"`
}

func (c *TraceCmd) Run() error {
	data, err := blobio.ReadFile(c.Path)
	if err != nil {
		return err
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create trace output: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	events := 0
	_, decodeErr := registry.DecodeWithHook(data, func(offset, length int, label string) {
		events++
		_ = enc.Encode(traceEvent{Offset: offset, Length: length, Label: label})
	})
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush trace output: %w", err)
	}

	fmt.Printf("Trace: %s\n", c.Out)
	fmt.Printf("  Events: %d\n", events)

	// A failed decode still produces a useful partial trace; report the
	// failure after the events are on disk.
	if decodeErr != nil {
		logging.DecodeFailed(c.Path, decodeErr)
		return fmt.Errorf("%w: %v", errDecode, decodeErr)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("regcache %s (pinned registry version %d, %s)\n",
		version, uint32(registry.SupportedVersion), registry.SupportedVersion)
	return nil
}

func logLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("regcache"),
		kong.Description("Codec and tooling for the engine's asset-registry cache format."),
		kong.UsageOnError(),
	)

	format := logging.FormatText
	if CLI.LogJSON {
		format = logging.FormatJSON
	}
	logging.InitLogger(logLevel(CLI.LogLevel), format)

	err := ctx.Run()
	switch {
	case err == nil:
		os.Exit(exitOK)
	case errors.Is(err, errDecode):
		fmt.Fprintf(os.Stderr, "regcache: %v\n", err)
		os.Exit(exitDecodeError)
	case errors.Is(err, errMismatch):
		fmt.Fprintf(os.Stderr, "regcache: %v\n", err)
		os.Exit(exitMismatch)
	default:
		fmt.Fprintf(os.Stderr, "regcache: %v\n", err)
		os.Exit(exitError)
	}
}
