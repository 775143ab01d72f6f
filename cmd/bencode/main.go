// bencode - bencode codec CLI tool
//
// Usage:
//
//	bencode decode [--to json|yaml|cbor|text] [file]   Decode bencode and print it
//	bencode encode [--from json|yaml|cbor] [file]      Encode a document as bencode
//	bencode validate [file]                            Check that input is one valid value
//	bencode info [file]                                Summarize a .torrent file
//	bencode stream [--digest alg] [file]               List concatenated values
//	bencode version                                    Print version info
//
// If no file is given, reads from stdin. gzip, zstd and lz4 input is
// decompressed automatically.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Neumenon/bencode/bencode"
	"github.com/Neumenon/bencode/bridge"
	"github.com/Neumenon/bencode/metainfo"
	"github.com/Neumenon/bencode/stream"
)

const libVersion = "0.1.0"

var logger = zap.NewNop()

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "decode":
		cmdDecode(args)
	case "encode":
		cmdEncode(args)
	case "validate":
		cmdValidate(args)
	case "info":
		cmdInfo(args)
	case "stream":
		cmdStream(args)
	case "version", "-v", "--version":
		fmt.Printf("bencode %s\n", libVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `bencode - bencode codec CLI tool

Usage:
  bencode decode [options] [file]     Decode bencode and print it
  bencode encode [options] [file]     Encode JSON, YAML or CBOR as bencode
  bencode validate [options] [file]   Check that input is one valid value
  bencode info [file]                 Summarize a .torrent file
  bencode stream [options] [file]     List concatenated values
  bencode version                     Print version info

Common options:
  --config FILE       YAML file with default options
  -v, --verbose       Log debug output to stderr

Decode options:
  --to FORMAT         json (default), yaml, cbor or text
  --extended          Mark binary strings as {"$bencode":"bytes",...} in JSON
  --strict            Reject leading zeros in integers and lengths
  --max-depth N       Maximum nesting of lists and dictionaries (default 512)

Encode options:
  --from FORMAT       json (default), yaml or cbor
  --extended          Read {"$bencode":"bytes",...} markers from JSON
  --canonical         Sort dictionary keys
  --compress ALG      none (default), gzip, zstd or lz4

Stream options:
  --digest ALG        none (default), crc32, sha1, sha256 or blake3

If no file is given, reads from stdin.

Examples:
  echo -n 'd1:bi1e1:a1:xe' | bencode decode
  # Output: {"b":1,"a":"x"}

  echo '{"b":1,"a":"x"}' | bencode encode --canonical
  # Output: d1:a1:x1:bi1ee

  bencode info ubuntu.iso.torrent
  bencode stream --digest sha1 krpc.log.zst
`)
}

type common struct {
	config  string
	verbose bool
}

func newFlagSet(name string, c *common) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.StringVar(&c.config, "config", "", "YAML file with default options")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")
	fs.Usage = printUsage
	return fs
}

// parse parses args, applies the config file and returns the optional
// file argument.
func parse(fs *pflag.FlagSet, c *common, args []string) string {
	_ = fs.Parse(args) // ExitOnError
	if err := applyConfig(fs, c.config); err != nil {
		fatal("%v", err)
	}
	setupLogger(c.verbose)
	if fs.NArg() > 1 {
		fatal("%s: too many arguments", fs.Name())
	}
	return fs.Arg(0)
}

func setupLogger(verbose bool) {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fatal("logger: %v", err)
	}
	stream.SetLogger(logger)
}

func decodeFlags(fs *pflag.FlagSet) *bencode.DecodeOptions {
	opts := bencode.DefaultDecodeOptions()
	fs.BoolVar(&opts.Strict, "strict", false, "reject leading zeros")
	fs.IntVar(&opts.MaxDepth, "max-depth", bencode.DefaultMaxDepth, "maximum nesting depth")
	return &opts
}

// cmdDecode: bencode -> JSON, YAML, CBOR or debug text
func cmdDecode(args []string) {
	var c common
	fs := newFlagSet("decode", &c)
	to := fs.String("to", "json", "output format")
	extended := fs.Bool("extended", false, "mark binary strings in JSON")
	opts := decodeFlags(fs)
	file := parse(fs, &c, args)

	data := readInput(file)
	v, err := bencode.DecodeWithOptions(data, *opts)
	if err != nil {
		fatal("decode: %v", err)
	}

	var out []byte
	switch strings.ToLower(*to) {
	case "json":
		bopts := bridge.DefaultBridgeOpts()
		if *extended {
			bopts = bridge.ExtendedBridgeOpts()
		}
		out, err = bridge.ToJSONWithOpts(v, bopts)
		out = append(out, '\n')
	case "yaml":
		out, err = bridge.ToYAML(v)
	case "cbor":
		out, err = bridge.ToCBOR(v)
	case "text":
		out = []byte(v.String() + "\n")
	default:
		fatal("decode: unknown output format %q", *to)
	}
	if err != nil {
		fatal("decode: %v", err)
	}
	writeOutput(out)
}

// cmdEncode: JSON, YAML or CBOR -> bencode
func cmdEncode(args []string) {
	var c common
	fs := newFlagSet("encode", &c)
	from := fs.String("from", "json", "input format")
	extended := fs.Bool("extended", false, "read binary string markers from JSON")
	canonical := fs.Bool("canonical", false, "sort dictionary keys")
	compress := fs.String("compress", "none", "output compression")
	file := parse(fs, &c, args)

	data := readInput(file)
	var v *bencode.Value
	var err error
	switch strings.ToLower(*from) {
	case "json":
		bopts := bridge.DefaultBridgeOpts()
		if *extended {
			bopts = bridge.ExtendedBridgeOpts()
		}
		v, err = bridge.FromJSONWithOpts(data, bopts)
	case "yaml":
		v, err = bridge.FromYAML(data)
	case "cbor":
		v, err = bridge.FromCBOR(data)
	default:
		fatal("encode: unknown input format %q", *from)
	}
	if err != nil {
		fatal("encode: %v", err)
	}

	out, err := bencode.MarshalWithOptions(v, bencode.EncodeOptions{Canonical: *canonical})
	if err != nil {
		fatal("encode: %v", err)
	}

	comp, err := stream.ParseCompression(*compress)
	if err != nil {
		fatal("encode: %v", err)
	}
	w, err := stream.NewCompressor(os.Stdout, comp)
	if err != nil {
		fatal("encode: %v", err)
	}
	if _, err := w.Write(out); err != nil {
		fatal("write output: %v", err)
	}
	if err := w.Close(); err != nil {
		fatal("write output: %v", err)
	}
	logger.Debug("encoded", zap.Int("bytes", len(out)), zap.Stringer("compression", comp))
}

// cmdValidate prints "ok" or the first error with its byte offset.
func cmdValidate(args []string) {
	var c common
	fs := newFlagSet("validate", &c)
	opts := decodeFlags(fs)
	file := parse(fs, &c, args)

	data := readInput(file)
	d := bencode.NewDecoder(bencode.NewInput(data), *opts)
	err := d.Skip()
	if err == nil {
		err = d.End()
	}
	if err == nil {
		fmt.Println("ok")
		return
	}

	var berr *bencode.Error
	if errors.As(err, &berr) && berr.Offset >= 0 {
		fmt.Printf("invalid: %s at offset %d\n", berr.Kind, berr.Offset)
	} else {
		fmt.Printf("invalid: %v\n", err)
	}
	os.Exit(1)
}

// cmdInfo prints a summary of a torrent file.
func cmdInfo(args []string) {
	var c common
	fs := newFlagSet("info", &c)
	file := parse(fs, &c, args)

	m, err := metainfo.Parse(readInput(file))
	if err != nil {
		fatal("%v", err)
	}
	if err := m.Info.Validate(); err != nil {
		logger.Warn("torrent info is inconsistent", zap.Error(err))
	}

	info := &m.Info
	fmt.Printf("Name:          %s\n", info.Name)
	if info.IsDir() {
		fmt.Printf("Files:         %d\n", len(info.Files))
		for _, f := range info.Files {
			fmt.Printf("  %12d  %s\n", f.Length, strings.Join(f.Path, "/"))
		}
	}
	fmt.Printf("Total length:  %d\n", info.TotalLength())
	fmt.Printf("Piece length:  %d\n", info.PieceLength)
	fmt.Printf("Pieces:        %d\n", info.NumPieces())
	fmt.Printf("Private:       %t\n", info.Private)
	if m.CreatedBy != "" {
		fmt.Printf("Created by:    %s\n", m.CreatedBy)
	}
	if m.Comment != "" {
		fmt.Printf("Comment:       %s\n", m.Comment)
	}
	for _, tr := range m.Trackers() {
		fmt.Printf("Tracker:       %s\n", tr)
	}

	h1, err := m.InfoHash()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Info hash:     %s\n", stream.HashToHex(h1[:]))
	if info.MetaVersion == 2 {
		h2, err := m.InfoHashV2()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Info hash v2:  %s\n", stream.HashToHex(h2[:]))
	}
	magnet, err := m.MagnetURI()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Magnet:        %s\n", magnet)
}

// cmdStream prints one line per value: index, offset, size, digest, JSON.
func cmdStream(args []string) {
	var c common
	fs := newFlagSet("stream", &c)
	digest := fs.String("digest", "none", "digest algorithm")
	opts := decodeFlags(fs)
	file := parse(fs, &c, args)

	alg, err := stream.ParseAlgorithm(*digest)
	if err != nil {
		fatal("stream: %v", err)
	}
	rc := openInput(file)
	defer rc.Close()

	readerOpts := []stream.ReaderOption{stream.WithDigest(alg), stream.WithMaxDepth(opts.MaxDepth)}
	if opts.Strict {
		readerOpts = append(readerOpts, stream.WithStrict())
	}
	r := stream.NewReader(rc, readerOpts...)
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatal("stream: %v", err)
		}
		printFrame(f)
	}
}

func printFrame(f *stream.Frame) {
	sum := "-"
	if f.Digest != nil {
		sum = stream.HashToHex(f.Digest)
	}
	text := "(unprintable)"
	if v, err := f.Value(); err == nil {
		if j, err := bridge.ToJSONWithOpts(v, bridge.ExtendedBridgeOpts()); err == nil {
			text = string(j)
		}
	}
	fmt.Printf("%d\t%d\t%d\t%s\t%s\n", f.Seq, f.Offset, f.Size(), sum, text)
}

// openInput opens file ("" or "-" for stdin) and unwraps compression.
func openInput(file string) io.ReadCloser {
	var src io.ReadCloser = os.Stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			fatal("open file: %v", err)
		}
		src = f
	}
	rc, comp, err := stream.Decompress(src)
	if err != nil {
		fatal("read input: %v", err)
	}
	logger.Debug("input", zap.String("file", file), zap.Stringer("compression", comp))
	return readCloser{Reader: rc, closers: []io.Closer{rc, src}}
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func readInput(file string) []byte {
	rc := openInput(file)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		fatal("read input: %v", err)
	}
	return data
}

func writeOutput(data []byte) {
	if _, err := os.Stdout.Write(data); err != nil {
		fatal("write output: %v", err)
	}
}

func fatal(format string, args ...interface{}) {
	_ = logger.Sync()
	fmt.Fprintf(os.Stderr, "bencode: "+format+"\n", args...)
	os.Exit(1)
}
