// Package metainfo reads and writes BitTorrent metainfo (.torrent)
// files.
//
// The info dictionary is kept as raw bytes alongside its decoded form,
// so the info-hash is always computed over exactly what the file holds,
// even when the encoder that produced it did not sort keys.
package metainfo

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"

	"github.com/Neumenon/bencode/bencode"
)

// MetaInfo is the top-level dictionary of a torrent file.
type MetaInfo struct {
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate int64 // seconds since the Unix epoch
	Encoding     string
	URLList      []string // web seeds

	Info Info

	// InfoBytes holds the encoded info dictionary. It is set by
	// decoding and written back verbatim by encoding; when nil, Info
	// is encoded instead.
	InfoBytes bencode.RawMessage
}

// Parse decodes a torrent file.
func Parse(data []byte) (*MetaInfo, error) {
	var m MetaInfo
	if err := bencode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("metainfo: %w", err)
	}
	return &m, nil
}

// Load reads and decodes a torrent file from r.
func Load(r io.Reader) (*MetaInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metainfo: read: %w", err)
	}
	return Parse(data)
}

// Marshal encodes m with dictionary keys sorted.
func (m *MetaInfo) Marshal() ([]byte, error) {
	return bencode.MarshalWithOptions(m, bencode.CanonicalEncodeOptions())
}

// SetInfo replaces the info dictionary and refreshes InfoBytes.
func (m *MetaInfo) SetInfo(info Info) error {
	raw, err := bencode.MarshalWithOptions(&info, bencode.CanonicalEncodeOptions())
	if err != nil {
		return fmt.Errorf("metainfo: encode info: %w", err)
	}
	m.Info = info
	m.InfoBytes = raw
	return nil
}

// InfoHash returns the v1 info-hash: SHA-1 of the encoded info
// dictionary.
func (m *MetaInfo) InfoHash() ([sha1.Size]byte, error) {
	raw, err := m.infoBytes()
	if err != nil {
		return [sha1.Size]byte{}, err
	}
	return sha1.Sum(raw), nil
}

// InfoHashV2 returns the v2 info-hash: SHA-256 of the encoded info
// dictionary.
func (m *MetaInfo) InfoHashV2() ([sha256.Size]byte, error) {
	raw, err := m.infoBytes()
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(raw), nil
}

func (m *MetaInfo) infoBytes() ([]byte, error) {
	if m.InfoBytes != nil {
		return m.InfoBytes, nil
	}
	raw, err := bencode.MarshalWithOptions(&m.Info, bencode.CanonicalEncodeOptions())
	if err != nil {
		return nil, fmt.Errorf("metainfo: encode info: %w", err)
	}
	return raw, nil
}

// Trackers returns every tracker URL, announce-list tiers first, without
// duplicates.
func (m *MetaInfo) Trackers() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, tier := range m.AnnounceList {
		for _, u := range tier {
			add(u)
		}
	}
	add(m.Announce)
	return out
}

// MagnetURI returns a magnet link for the v1 info-hash.
func (m *MetaInfo) MagnetURI() (string, error) {
	h, err := m.InfoHash()
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("dn", m.Info.Name)
	for _, tr := range m.Trackers() {
		q.Add("tr", tr)
	}
	return "magnet:?xt=urn:btih:" + hex.EncodeToString(h[:]) + "&" + q.Encode(), nil
}

// UnmarshalBencode decodes the top-level dictionary.
func (m *MetaInfo) UnmarshalBencode(d *bencode.Decoder) error {
	*m = MetaInfo{}
	return d.Fields(func(key string, d *bencode.Decoder) (err error) {
		switch key {
		case "announce":
			m.Announce, err = text(d)
		case "announce-list":
			err = d.Elements(func(d *bencode.Decoder) error {
				tier, err := textList(d)
				m.AnnounceList = append(m.AnnounceList, tier)
				return err
			})
		case "comment":
			m.Comment, err = text(d)
		case "created by":
			m.CreatedBy, err = text(d)
		case "creation date":
			m.CreationDate, err = d.Int64()
		case "encoding":
			m.Encoding, err = text(d)
		case "url-list":
			m.URLList, err = urlList(d)
		case "info":
			if err = m.InfoBytes.UnmarshalBencode(d); err == nil {
				err = bencode.Unmarshal(m.InfoBytes, &m.Info)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return fmt.Errorf("%q: %w", key, err)
		}
		return nil
	})
}

// url-list is a single URL or a list of them.
func urlList(d *bencode.Decoder) ([]string, error) {
	c, err := d.Peek()
	if err != nil {
		return nil, err
	}
	if c == 'l' {
		return textList(d)
	}
	u, err := text(d)
	if err != nil {
		return nil, err
	}
	return []string{u}, nil
}

// MarshalBencode writes the top-level dictionary with keys in sorted
// order.
func (m *MetaInfo) MarshalBencode(e *bencode.Encoder) error {
	d, err := e.EncodeStruct()
	if err != nil {
		return err
	}
	if m.Announce != "" {
		if err := d.Entry("announce", bencode.String(m.Announce)); err != nil {
			return err
		}
	}
	if len(m.AnnounceList) > 0 {
		tiers := bencode.MarshalerFunc(func(e *bencode.Encoder) error {
			l, err := e.EncodeList()
			if err != nil {
				return err
			}
			for _, tier := range m.AnnounceList {
				if err := l.Element(bencode.Strings(tier)); err != nil {
					return err
				}
			}
			return l.End()
		})
		if err := d.Entry("announce-list", tiers); err != nil {
			return err
		}
	}
	if m.Comment != "" {
		if err := d.Entry("comment", bencode.String(m.Comment)); err != nil {
			return err
		}
	}
	if m.CreatedBy != "" {
		if err := d.Entry("created by", bencode.String(m.CreatedBy)); err != nil {
			return err
		}
	}
	if m.CreationDate != 0 {
		if err := d.Entry("creation date", bencode.Int(m.CreationDate)); err != nil {
			return err
		}
	}
	if m.Encoding != "" {
		if err := d.Entry("encoding", bencode.String(m.Encoding)); err != nil {
			return err
		}
	}

	var info bencode.Marshaler = &m.Info
	if m.InfoBytes != nil {
		info = m.InfoBytes
	}
	if err := d.Entry("info", info); err != nil {
		return err
	}

	if len(m.URLList) > 0 {
		if err := d.Entry("url-list", bencode.Strings(m.URLList)); err != nil {
			return err
		}
	}
	return d.End()
}
