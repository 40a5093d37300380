package jobfile

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// fixedLayouts lists, per netstring version, the number of fields between
// the version tag and the builder names.
var fixedLayouts = map[Version]int{
	Version1: 5, // bsid, branch, baserev, patchlevel, diff
	Version2: 7, // + repository, project
	Version3: 8, // + who
	Version4: 9, // + comment
}

// Decode parses a job file and reports the version it was written in.
func Decode(data []byte) (*Request, Version, error) {
	fields, err := splitFields(data)
	if err != nil {
		return nil, "", err
	}
	if len(fields) == 0 {
		return nil, "", fmt.Errorf("%w: empty job file", ErrMalformed)
	}

	version := Version(fields[0])
	if version == Version5 {
		req, err := decodeV5(fields[1:])
		if err != nil {
			return nil, "", err
		}
		return req, version, nil
	}

	fixed, ok := fixedLayouts[version]
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown version %q", ErrMalformed, fields[0])
	}
	body := fields[1:]
	if len(body) < fixed+1 {
		return nil, "", fmt.Errorf("%w: version %s needs at least %d fields, got %d", ErrMalformed, version, fixed+1, len(body))
	}

	level, err := strconv.Atoi(body[3])
	if err != nil || level < 0 {
		return nil, "", fmt.Errorf("%w: patch level %q", ErrMalformed, body[3])
	}

	req := &Request{
		BuildSetID:   body[0],
		Branch:       body[1],
		BaseRevision: body[2],
		PatchLevel:   level,
		Diff:         body[4],
	}
	if version != Version1 {
		req.Repository = body[5]
		req.Project = body[6]
	}
	if version == Version3 || version == Version4 {
		req.Who = body[7]
	}
	if version == Version4 {
		req.Comment = body[8]
	}
	req.Builders = append([]string(nil), body[fixed:]...)
	return req, version, nil
}

func decodeV5(body []string) (*Request, error) {
	if len(body) != 1 {
		return nil, fmt.Errorf("%w: version 5 expects one payload field, got %d", ErrMalformed, len(body))
	}
	var doc payloadV5
	if err := json.Unmarshal([]byte(body[0]), &doc); err != nil {
		return nil, fmt.Errorf("%w: version 5 payload: %v", ErrMalformed, err)
	}
	if doc.PatchLevel < 0 {
		return nil, fmt.Errorf("%w: patch level %d", ErrMalformed, doc.PatchLevel)
	}
	if len(doc.Builders) == 0 {
		return nil, fmt.Errorf("%w: no builder names", ErrMalformed)
	}
	return &Request{
		BuildSetID:   doc.BuildSetID,
		Branch:       deref(doc.Branch),
		BaseRevision: deref(doc.BaseRevision),
		PatchLevel:   doc.PatchLevel,
		Diff:         doc.Diff,
		Repository:   doc.Repository,
		Project:      doc.Project,
		Who:          deref(doc.Who),
		Comment:      deref(doc.Comment),
		Builders:     doc.Builders,
		Properties:   doc.Properties,
	}, nil
}
