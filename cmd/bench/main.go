// bench - bencode size benchmark runner
//
// Compares encoded sizes of the same values as:
//   - bencode (canonical)
//   - JSON (minified, binary strings base64)
//   - CBOR (core deterministic)
//
// Output: markdown table on stdout, optional CSV with --csv.
package main

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/Neumenon/bencode/bencode"
	"github.com/Neumenon/bencode/bridge"
	"github.com/Neumenon/bencode/metainfo"
)

type CaseResult struct {
	Name         string
	BencodeBytes int
	JSONBytes    int
	CBORBytes    int
	EncodeTime   time.Duration
	DecodeTime   time.Duration
}

type benchCase struct {
	name  string
	value *bencode.Value
}

func main() {
	seed := pflag.Int64("seed", 1, "random seed for generated cases")
	rounds := pflag.Int("rounds", 200, "encode/decode rounds per case for timing")
	csvPath := pflag.String("csv", "", "also write results as CSV to this file")
	pflag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	cases, err := buildCases(rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build cases: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "bencode Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "========================\n")
	fmt.Fprintf(os.Stderr, "Cases: %d, rounds: %d\n\n", len(cases), *rounds)

	var results []CaseResult
	for _, c := range cases {
		r, err := measure(c, *rounds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", c.name, err)
			continue
		}
		results = append(results, r)
	}

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err == nil {
			writeCSV(f, results)
			f.Close()
			fmt.Fprintf(os.Stderr, "CSV written to: %s\n", *csvPath)
		}
	}

	writeMarkdown(os.Stdout, results)
}

func measure(c benchCase, rounds int) (CaseResult, error) {
	opts := bencode.CanonicalEncodeOptions()
	ben, err := bencode.MarshalWithOptions(c.value, opts)
	if err != nil {
		return CaseResult{}, err
	}
	js, err := bridge.ToJSON(c.value)
	if err != nil {
		return CaseResult{}, err
	}
	cb, err := bridge.ToCBOR(c.value)
	if err != nil {
		return CaseResult{}, err
	}

	start := time.Now()
	for i := 0; i < rounds; i++ {
		if _, err := bencode.MarshalWithOptions(c.value, opts); err != nil {
			return CaseResult{}, err
		}
	}
	enc := time.Since(start)

	start = time.Now()
	for i := 0; i < rounds; i++ {
		if _, err := bencode.Decode(ben); err != nil {
			return CaseResult{}, err
		}
	}
	dec := time.Since(start)

	return CaseResult{
		Name:         c.name,
		BencodeBytes: len(ben),
		JSONBytes:    len(js),
		CBORBytes:    len(cb),
		EncodeTime:   enc / time.Duration(max(1, rounds)),
		DecodeTime:   dec / time.Duration(max(1, rounds)),
	}, nil
}

// buildCases generates representative values: torrent metainfo, KRPC
// messages, integer lists and text lists.
func buildCases(rng *rand.Rand) ([]benchCase, error) {
	var cases []benchCase

	for _, files := range []int{1, 25} {
		raw, err := torrent(rng, files).Marshal()
		if err != nil {
			return nil, err
		}
		v, err := bencode.Decode(raw)
		if err != nil {
			return nil, err
		}
		cases = append(cases, benchCase{fmt.Sprintf("torrent_%d_files", files), v})
	}

	cases = append(cases, benchCase{"krpc_get_peers", krpc(rng)})

	ints := bencode.NewList()
	for i := 0; i < 1000; i++ {
		ints.Append(bencode.NewInt(rng.Int63n(1 << 40)))
	}
	cases = append(cases, benchCase{"int_list_1000", ints})

	small := bencode.NewList()
	for i := 0; i < 1000; i++ {
		small.Append(bencode.NewInt(int64(rng.Intn(100))))
	}
	cases = append(cases, benchCase{"small_int_list_1000", small})

	words := bencode.NewList()
	for i := 0; i < 500; i++ {
		words.Append(bencode.NewString(word(rng)))
	}
	cases = append(cases, benchCase{"text_list_500", words})

	return cases, nil
}

func torrent(rng *rand.Rand, files int) *metainfo.MetaInfo {
	const pieceLength = 256 * 1024
	info := metainfo.Info{Name: "bench-" + word(rng), PieceLength: pieceLength}
	var total int64
	if files == 1 {
		info.Length = rng.Int63n(64 << 20)
		total = info.Length
	} else {
		for i := 0; i < files; i++ {
			f := metainfo.File{Length: rng.Int63n(4 << 20), Path: []string{word(rng), word(rng) + ".dat"}}
			info.Files = append(info.Files, f)
			total += f.Length
		}
	}
	pieces := (total + pieceLength - 1) / pieceLength
	var buf bytes.Buffer
	for i := int64(0); i < pieces; i++ {
		h := sha1.Sum([]byte(strconv.FormatInt(rng.Int63(), 10)))
		buf.Write(h[:])
	}
	info.Pieces = buf.Bytes()

	return &metainfo.MetaInfo{
		Announce:     "udp://tracker.example:1337/announce",
		CreatedBy:    "bench",
		CreationDate: 1700000000,
		Info:         info,
	}
}

func krpc(rng *rand.Rand) *bencode.Value {
	id := make([]byte, 20)
	target := make([]byte, 20)
	rng.Read(id)
	rng.Read(target)
	return bencode.NewDict(
		bencode.Entry{Key: "a", Value: bencode.NewDict(
			bencode.Entry{Key: "id", Value: bencode.NewBytes(id)},
			bencode.Entry{Key: "info_hash", Value: bencode.NewBytes(target)},
		)},
		bencode.Entry{Key: "q", Value: bencode.NewString("get_peers")},
		bencode.Entry{Key: "t", Value: bencode.NewString("aa")},
		bencode.Entry{Key: "y", Value: bencode.NewString("q")},
	)
}

func word(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 3+rng.Intn(10))
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,bencode_bytes,json_bytes,cbor_bytes,encode_ns,decode_ns")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%d\n",
			r.Name, r.BencodeBytes, r.JSONBytes, r.CBORBytes,
			r.EncodeTime.Nanoseconds(), r.DecodeTime.Nanoseconds())
	}
}

func writeMarkdown(w io.Writer, results []CaseResult) {
	fmt.Fprintf(w, "# bencode Benchmark Results\n\n")

	var totalBen, totalJSON, totalCBOR int
	for _, r := range results {
		totalBen += r.BencodeBytes
		totalJSON += r.JSONBytes
		totalCBOR += r.CBORBytes
	}

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Format | Bytes | vs bencode |\n")
	fmt.Fprintf(w, "|--------|-------|------------|\n")
	fmt.Fprintf(w, "| bencode | %d | - |\n", totalBen)
	fmt.Fprintf(w, "| JSON | %d | %s |\n", totalJSON, pct(totalJSON, totalBen))
	fmt.Fprintf(w, "| CBOR | %d | %s |\n\n", totalCBOR, pct(totalCBOR, totalBen))

	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | bencode | JSON | CBOR | Encode | Decode |\n")
	fmt.Fprintf(w, "|------|---------|------|------|--------|--------|\n")
	for _, r := range sorted {
		fmt.Fprintf(w, "| %s | %d | %d (%s) | %d (%s) | %s | %s |\n",
			r.Name, r.BencodeBytes,
			r.JSONBytes, pct(r.JSONBytes, r.BencodeBytes),
			r.CBORBytes, pct(r.CBORBytes, r.BencodeBytes),
			r.EncodeTime, r.DecodeTime)
	}

	fmt.Fprintf(w, "\n## Methodology\n\n")
	fmt.Fprintf(w, "- **bencode:** canonical encoding (sorted keys)\n")
	fmt.Fprintf(w, "- **JSON:** minified; binary strings as base64\n")
	fmt.Fprintf(w, "- **CBOR:** core deterministic encoding; binary strings as byte strings\n")
}

func pct(n, base int) string {
	if base == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", float64(n-base)/float64(base)*100)
}
