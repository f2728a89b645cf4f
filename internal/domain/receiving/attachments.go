package receiving

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/retailops/ledger/internal/domain/shared"
)

// AttachmentEncoding tags which wire shape an attachment payload arrived in
type AttachmentEncoding int

const (
	AttachmentEncodingNone AttachmentEncoding = iota
	AttachmentEncodingSingle
	AttachmentEncodingList
	AttachmentEncodingWrapped
)

func (e AttachmentEncoding) String() string {
	switch e {
	case AttachmentEncodingSingle:
		return "single"
	case AttachmentEncodingList:
		return "list"
	case AttachmentEncodingWrapped:
		return "wrapped"
	default:
		return "none"
	}
}

// WrapperKeys are the object keys recognised as holding attachment paths,
// in the order they are tried.
var WrapperKeys = []string{"paths", "files", "images", "attachments", "urls"}

// Attachments is the parsed form of a receipt's attachment references.
// Paths is always the canonical ordered list with empty entries removed.
type Attachments struct {
	Encoding   AttachmentEncoding
	WrapperKey string
	paths      []string
}

// NewAttachments builds an Attachments value from an already-canonical list
func NewAttachments(paths ...string) Attachments {
	return Attachments{Encoding: AttachmentEncodingList, paths: compact(paths)}
}

// Paths returns a copy of the ordered attachment paths
func (a Attachments) Paths() []string {
	out := make([]string, len(a.paths))
	copy(out, a.paths)
	return out
}

// Len returns the number of attachment paths
func (a Attachments) Len() int {
	return len(a.paths)
}

// ParseAttachments accepts a bare path, a list of paths, or an object that
// wraps a path or list under one of WrapperKeys. Null and empty entries are
// dropped and order is preserved. Any other shape is a validation error.
func ParseAttachments(raw json.RawMessage) (Attachments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Attachments{Encoding: AttachmentEncodingNone}, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Attachments{}, invalidAttachments(err.Error())
		}
		return Attachments{Encoding: AttachmentEncodingSingle, paths: compact([]string{s})}, nil

	case '[':
		paths, err := parsePathList(trimmed)
		if err != nil {
			return Attachments{}, err
		}
		return Attachments{Encoding: AttachmentEncodingList, paths: paths}, nil

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return Attachments{}, invalidAttachments(err.Error())
		}
		for _, key := range WrapperKeys {
			inner, ok := obj[key]
			if !ok {
				continue
			}
			parsed, err := ParseAttachments(inner)
			if err != nil {
				return Attachments{}, err
			}
			if parsed.Encoding == AttachmentEncodingWrapped {
				return Attachments{}, invalidAttachments("nested wrapper objects are not supported")
			}
			return Attachments{Encoding: AttachmentEncodingWrapped, WrapperKey: key, paths: parsed.paths}, nil
		}
		return Attachments{}, invalidAttachments("object has none of the keys " + strings.Join(WrapperKeys, ", "))
	}

	return Attachments{}, invalidAttachments("expected a string, a list or an object")
}

// NormalizeAttachments parses raw and returns only the canonical path list
func NormalizeAttachments(raw json.RawMessage) ([]string, error) {
	a, err := ParseAttachments(raw)
	if err != nil {
		return nil, err
	}
	return a.Paths(), nil
}

func parsePathList(raw []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidAttachments(err.Error())
	}
	paths := make([]string, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if bytes.Equal(item, []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, shared.ErrValidation.WithMessagef("attachments[%d]: expected a string path", i)
		}
		paths = append(paths, s)
	}
	return compact(paths), nil
}

func compact(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func invalidAttachments(detail string) error {
	return shared.ErrValidation.WithMessage("invalid attachments: " + detail)
}
