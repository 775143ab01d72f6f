package metainfo

import (
	"fmt"

	"github.com/Neumenon/bencode/bencode"
)

// PieceHashSize is the size of one SHA-1 piece hash in Info.Pieces.
const PieceHashSize = 20

// Info is the info dictionary of a torrent.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      []byte // concatenated SHA-1 piece hashes
	Private     bool
	MetaVersion int64 // 2 for v2 and hybrid torrents

	// Single-file torrents set Length; multi-file torrents set Files.
	Length int64
	Files  []File
}

// File is one entry of a multi-file torrent.
type File struct {
	Length int64
	Path   []string
	MD5Sum string
}

// IsDir reports whether the torrent holds several files under a
// directory named Info.Name.
func (i *Info) IsDir() bool {
	return len(i.Files) > 0
}

// TotalLength returns the total size of the torrent's content.
func (i *Info) TotalLength() int64 {
	if !i.IsDir() {
		return i.Length
	}
	var n int64
	for _, f := range i.Files {
		n += f.Length
	}
	return n
}

// NumPieces returns the number of piece hashes.
func (i *Info) NumPieces() int {
	return len(i.Pieces) / PieceHashSize
}

// PieceHashes splits Pieces into individual hashes.
func (i *Info) PieceHashes() ([][PieceHashSize]byte, error) {
	if len(i.Pieces)%PieceHashSize != 0 {
		return nil, fmt.Errorf("metainfo: pieces length %d is not a multiple of %d", len(i.Pieces), PieceHashSize)
	}
	hashes := make([][PieceHashSize]byte, i.NumPieces())
	for n := range hashes {
		copy(hashes[n][:], i.Pieces[n*PieceHashSize:])
	}
	return hashes, nil
}

// Validate checks the fields a client needs to use the torrent.
func (i *Info) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("metainfo: missing name")
	}
	if i.PieceLength <= 0 {
		return fmt.Errorf("metainfo: invalid piece length %d", i.PieceLength)
	}
	if i.IsDir() && i.Length != 0 {
		return fmt.Errorf("metainfo: both length and files are set")
	}
	for n, f := range i.Files {
		if f.Length < 0 {
			return fmt.Errorf("metainfo: file %d: negative length", n)
		}
		if len(f.Path) == 0 {
			return fmt.Errorf("metainfo: file %d: empty path", n)
		}
	}
	if i.Length < 0 {
		return fmt.Errorf("metainfo: negative length")
	}
	if i.MetaVersion == 2 && len(i.Pieces) == 0 {
		return nil // pure v2: piece layers live outside the info dictionary
	}
	if _, err := i.PieceHashes(); err != nil {
		return err
	}
	want := (i.TotalLength() + i.PieceLength - 1) / i.PieceLength
	if int64(i.NumPieces()) != want {
		return fmt.Errorf("metainfo: %d piece hashes for %d pieces", i.NumPieces(), want)
	}
	return nil
}

// UnmarshalBencode decodes an info dictionary. Unknown keys are
// skipped.
func (i *Info) UnmarshalBencode(d *bencode.Decoder) error {
	*i = Info{}
	return d.Fields(func(key string, d *bencode.Decoder) (err error) {
		switch key {
		case "name":
			i.Name, err = text(d)
		case "piece length":
			i.PieceLength, err = d.Int64()
		case "pieces":
			i.Pieces, err = byteString(d)
		case "private":
			var n int64
			n, err = d.Int64()
			i.Private = n == 1
		case "meta version":
			i.MetaVersion, err = d.Int64()
		case "length":
			i.Length, err = d.Int64()
		case "files":
			err = d.Elements(func(d *bencode.Decoder) error {
				var f File
				if err := f.UnmarshalBencode(d); err != nil {
					return err
				}
				i.Files = append(i.Files, f)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("info %q: %w", key, err)
		}
		return nil
	})
}

// MarshalBencode writes the info dictionary with keys in sorted order.
func (i *Info) MarshalBencode(e *bencode.Encoder) error {
	m, err := e.EncodeStruct()
	if err != nil {
		return err
	}
	if i.IsDir() {
		files := bencode.MarshalerFunc(func(e *bencode.Encoder) error {
			l, err := e.EncodeList()
			if err != nil {
				return err
			}
			for n := range i.Files {
				if err := l.Element(&i.Files[n]); err != nil {
					return err
				}
			}
			return l.End()
		})
		if err := m.Entry("files", files); err != nil {
			return err
		}
	} else if err := m.Entry("length", bencode.Int(i.Length)); err != nil {
		return err
	}
	if i.MetaVersion != 0 {
		if err := m.Entry("meta version", bencode.Int(i.MetaVersion)); err != nil {
			return err
		}
	}
	if err := m.Entry("name", bencode.String(i.Name)); err != nil {
		return err
	}
	if err := m.Entry("piece length", bencode.Int(i.PieceLength)); err != nil {
		return err
	}
	if err := m.Entry("pieces", bencode.Bytes(i.Pieces)); err != nil {
		return err
	}
	if i.Private {
		if err := m.Entry("private", bencode.Int(1)); err != nil {
			return err
		}
	}
	return m.End()
}

// UnmarshalBencode decodes one entry of the files list.
func (f *File) UnmarshalBencode(d *bencode.Decoder) error {
	return d.Fields(func(key string, d *bencode.Decoder) (err error) {
		switch key {
		case "length":
			f.Length, err = d.Int64()
		case "path":
			f.Path, err = textList(d)
		case "md5sum":
			f.MD5Sum, err = text(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

// MarshalBencode writes one entry of the files list.
func (f *File) MarshalBencode(e *bencode.Encoder) error {
	m, err := e.EncodeStruct()
	if err != nil {
		return err
	}
	if err := m.Entry("length", bencode.Int(f.Length)); err != nil {
		return err
	}
	if f.MD5Sum != "" {
		if err := m.Entry("md5sum", bencode.String(f.MD5Sum)); err != nil {
			return err
		}
	}
	if err := m.Entry("path", bencode.Strings(f.Path)); err != nil {
		return err
	}
	return m.End()
}

// text reads a byte string as a Go string. Older torrents carry names
// in legacy encodings, so UTF-8 is not required.
func text(d *bencode.Decoder) (string, error) {
	b, err := d.ByteString()
	return string(b), err
}

// byteString reads a byte string into memory the caller owns.
func byteString(d *bencode.Decoder) ([]byte, error) {
	b, err := d.ByteString()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func textList(d *bencode.Decoder) ([]string, error) {
	out := []string{}
	err := d.Elements(func(d *bencode.Decoder) error {
		s, err := text(d)
		out = append(out, s)
		return err
	})
	return out, err
}
