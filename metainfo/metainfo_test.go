package metainfo

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/bencode/bencode"
)

func pieces(n int) []byte {
	return bytes.Repeat([]byte{0xab}, n*PieceHashSize)
}

func singleFile() *MetaInfo {
	return &MetaInfo{
		Announce:     "http://tracker.example/announce",
		Comment:      "test",
		CreationDate: 1700000000,
		Info: Info{
			Name:        "file.bin",
			PieceLength: 256,
			Pieces:      pieces(4),
			Length:      1000,
		},
	}
}

func TestMarshal_SingleFile(t *testing.T) {
	data, err := singleFile().Marshal()
	require.NoError(t, err)

	want := "d8:announce31:http://tracker.example/announce7:comment4:test13:creation datei1700000000e" +
		"4:infod6:lengthi1000e4:name8:file.bin12:piece lengthi256e6:pieces80:" +
		string(pieces(4)) + "ee"
	assert.Equal(t, want, string(data))
}

func TestParse_RoundTrip(t *testing.T) {
	orig := &MetaInfo{
		Announce:     "udp://a.example:80",
		AnnounceList: [][]string{{"udp://a.example:80", "udp://b.example:80"}, {"http://c.example/announce"}},
		CreatedBy:    "bencode/test",
		Encoding:     "UTF-8",
		URLList:      []string{"https://seed.example/"},
		Info: Info{
			Name:        "album",
			PieceLength: 16,
			Pieces:      pieces(2),
			Private:     true,
			Files: []File{
				{Length: 20, Path: []string{"cd1", "01.flac"}},
				{Length: 12, Path: []string{"cover.jpg"}, MD5Sum: "d41d8cd98f00b204e9800998ecf8427e"},
			},
		},
	}

	data, err := orig.Marshal()
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, orig.Announce, got.Announce)
	assert.Equal(t, orig.AnnounceList, got.AnnounceList)
	assert.Equal(t, orig.CreatedBy, got.CreatedBy)
	assert.Equal(t, orig.Encoding, got.Encoding)
	assert.Equal(t, orig.URLList, got.URLList)
	assert.Equal(t, orig.Info, got.Info)
	assert.True(t, got.Info.IsDir())
	assert.Equal(t, int64(32), got.Info.TotalLength())
	require.NoError(t, got.Info.Validate())

	again, err := got.Marshal()
	require.NoError(t, err)
	assert.Equal(t, data, again)

	h1, err := orig.InfoHash()
	require.NoError(t, err)
	h2, err := got.InfoHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestInfoHash_UsesRawBytes(t *testing.T) {
	// Info keys out of order and a leading zero: re-encoding would
	// change the bytes, so the hash must come from the original.
	info := "d4:name1:x6:lengthi05e12:piece lengthi16e6:pieces20:" + string(pieces(1)) + "e"
	data := "d4:info" + info + "8:announce4:http" + "e"

	m, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, info, string(m.InfoBytes))
	assert.Equal(t, int64(5), m.Info.Length)

	h, err := m.InfoHash()
	require.NoError(t, err)
	assert.Equal(t, sha1.Sum([]byte(info)), h)

	h2, err := m.InfoHashV2()
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte(info)), h2)

	out, err := m.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), info, "raw info is written back unchanged")
}

func TestInfoHash_WithoutRawBytes(t *testing.T) {
	m := singleFile()
	h, err := m.InfoHash()
	require.NoError(t, err)

	raw, err := bencode.MarshalWithOptions(&m.Info, bencode.CanonicalEncodeOptions())
	require.NoError(t, err)
	assert.Equal(t, sha1.Sum(raw), h)

	require.NoError(t, m.SetInfo(m.Info))
	assert.Equal(t, bencode.RawMessage(raw), m.InfoBytes)
}

func TestParse_URLListForms(t *testing.T) {
	info := "d6:lengthi0e4:name1:x12:piece lengthi1e6:pieces0:e"

	m, err := Parse([]byte("d4:info" + info + "8:url-list18:https://a.example/e"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/"}, m.URLList)

	m, err = Parse([]byte("d4:info" + info + "8:url-listl3:u:13:u:2ee"))
	require.NoError(t, err)
	assert.Equal(t, []string{"u:1", "u:2"}, m.URLList)
}

func TestParse_LegacyEncodedName(t *testing.T) {
	info := "d6:lengthi0e4:name2:\xe9t12:piece lengthi1e6:pieces0:e"
	m, err := Parse([]byte("d4:info" + info + "e"))
	require.NoError(t, err)
	assert.Equal(t, "\xe9t", m.Info.Name)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not a dict", "le", bencode.ErrExpectedMap},
		{"bad piece length", "d4:infod12:piece length1:xee", bencode.ErrExpectedI},
		{"truncated", "d4:infod4:name", bencode.ErrUnexpectedEnd},
		{"trailing", "dei1e", bencode.ErrTrailingCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, strings.HasPrefix(err.Error(), "metainfo: "))
		})
	}
}

func TestInfo_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Info)
		ok     bool
	}{
		{"valid", func(*Info) {}, true},
		{"missing name", func(i *Info) { i.Name = "" }, false},
		{"zero piece length", func(i *Info) { i.PieceLength = 0 }, false},
		{"ragged pieces", func(i *Info) { i.Pieces = i.Pieces[:30] }, false},
		{"too few pieces", func(i *Info) { i.Pieces = pieces(3) }, false},
		{"both modes", func(i *Info) { i.Files = []File{{Length: 1, Path: []string{"a"}}} }, false},
		{"empty path", func(i *Info) { i.Length = 0; i.Files = []File{{Length: 1000}} }, false},
		{"pure v2", func(i *Info) { i.MetaVersion = 2; i.Pieces = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := singleFile().Info
			tt.modify(&info)
			err := info.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestInfo_PieceHashes(t *testing.T) {
	info := Info{Pieces: append(bytes.Repeat([]byte{1}, 20), bytes.Repeat([]byte{2}, 20)...)}
	hashes, err := info.PieceHashes()
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	assert.Equal(t, byte(1), hashes[0][19])
	assert.Equal(t, byte(2), hashes[1][0])
}

func TestTrackersAndMagnet(t *testing.T) {
	m := singleFile()
	m.AnnounceList = [][]string{{"udp://b.example:1", m.Announce}}
	assert.Equal(t, []string{"udp://b.example:1", m.Announce}, m.Trackers())

	uri, err := m.MagnetURI()
	require.NoError(t, err)
	h, err := m.InfoHash()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "magnet:?xt=urn:btih:"))
	assert.Contains(t, uri, "dn=file.bin")
	assert.Contains(t, uri, "tr=udp%3A%2F%2Fb.example%3A1")
	assert.Contains(t, uri, hex.EncodeToString(h[:]))
}
