package jobfile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// payloadV5 is the JSON document carried by version 5 job files.
type payloadV5 struct {
	BuildSetID   string            `json:"bsid"`
	Branch       *string           `json:"branch"`
	BaseRevision *string           `json:"baserev"`
	PatchLevel   int               `json:"patchlevel"`
	Diff         string            `json:"diff"`
	Repository   string            `json:"repository"`
	Project      string            `json:"project"`
	Who          *string           `json:"who"`
	Comment      *string           `json:"comment"`
	Builders     []string          `json:"builderNames"`
	Properties   map[string]string `json:"properties"`
}

// Encode validates r and serializes it using the version chosen by
// SelectVersion.
func Encode(r *Request) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	version := SelectVersion(r)
	buf := appendField(nil, string(version))

	if version == Version5 {
		if err := checkUTF8(r); err != nil {
			return nil, err
		}
		doc, err := json.Marshal(payloadV5{
			BuildSetID:   r.BuildSetID,
			Branch:       optional(r.Branch),
			BaseRevision: optional(r.BaseRevision),
			PatchLevel:   r.PatchLevel,
			Diff:         r.Diff,
			Repository:   r.Repository,
			Project:      r.Project,
			Who:          optional(r.Who),
			Comment:      optional(r.Comment),
			Builders:     r.Builders,
			Properties:   r.Properties,
		})
		if err != nil {
			return nil, fmt.Errorf("encode version 5 payload: %w", err)
		}
		return appendField(buf, string(doc)), nil
	}

	for _, field := range []string{
		r.BuildSetID,
		r.Branch,
		r.BaseRevision,
		strconv.Itoa(r.PatchLevel),
		r.Diff,
		r.Repository,
		r.Project,
	} {
		buf = appendField(buf, field)
	}
	if version == Version3 || version == Version4 {
		buf = appendField(buf, r.Who)
	}
	if version == Version4 {
		buf = appendField(buf, r.Comment)
	}
	for _, builder := range r.Builders {
		buf = appendField(buf, builder)
	}
	return buf, nil
}

// checkUTF8 rejects strings json.Marshal would rewrite with U+FFFD.
func checkUTF8(r *Request) error {
	fields := []struct{ name, value string }{
		{"bsid", r.BuildSetID},
		{"branch", r.Branch},
		{"baserev", r.BaseRevision},
		{"diff", r.Diff},
		{"repository", r.Repository},
		{"project", r.Project},
		{"who", r.Who},
		{"comment", r.Comment},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s", ErrNotUTF8, f.name)
		}
	}
	for _, builder := range r.Builders {
		if !utf8.ValidString(builder) {
			return fmt.Errorf("%w: builder %q", ErrNotUTF8, builder)
		}
	}
	for key, value := range r.Properties {
		if !utf8.ValidString(key) || !utf8.ValidString(value) {
			return fmt.Errorf("%w: property %q", ErrNotUTF8, key)
		}
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
