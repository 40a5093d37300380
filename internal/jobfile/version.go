package jobfile

// Version is the job file version tag.
type Version string

const (
	Version1 Version = "1"
	Version2 Version = "2"
	Version3 Version = "3"
	Version4 Version = "4"
	Version5 Version = "5"
)

// versionRules is evaluated top-down; the first matching rule decides the
// version. Order matters: each rule's version can carry every field the
// rules below it need.
var versionRules = []struct {
	version Version
	needs   func(*Request) bool
}{
	{Version5, func(r *Request) bool { return len(r.Properties) > 0 }},
	{Version4, func(r *Request) bool { return r.Comment != "" }},
	{Version3, func(r *Request) bool { return r.Who != "" }},
	{Version2, func(*Request) bool { return true }},
}

// SelectVersion returns the lowest version able to represent r.
func SelectVersion(r *Request) Version {
	for _, rule := range versionRules {
		if rule.needs(r) {
			return rule.version
		}
	}
	return Version2
}
