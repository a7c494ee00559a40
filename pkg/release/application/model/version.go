package model

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// Version is a strict MAJOR.MINOR.PATCH triple; pre-release and build
// metadata are never accepted.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ReleasedTag is a release tag as found in the repository. Tag may be spelled
// differently from the prefix plus Version, e.g. "v01.2.3".
type ReleasedTag struct {
	Version Version
	Tag     string
}

type Candidates struct {
	Patch Version
	Minor Version
	Major Version
}

func ParseVersion(s string) (Version, error) {
	matches := versionPattern.FindStringSubmatch(s)
	if matches == nil {
		return Version{}, errors.Wrapf(ErrVersion, "%q is not of the form X.Y.Z", s)
	}
	components := make([]uint64, 0, 3)
	for _, match := range matches[1:] {
		component, err := strconv.ParseUint(match, 10, 64)
		if err != nil {
			return Version{}, errors.Wrapf(ErrVersion, "component %q of %q is out of range", match, s)
		}
		components = append(components, component)
	}
	return Version{Major: components[0], Minor: components[1], Patch: components[2]}, nil
}

// ParseTag strips prefix from tag and parses the remainder strictly.
func ParseTag(tag, prefix string) (Version, bool) {
	if !strings.HasPrefix(tag, prefix) {
		return Version{}, false
	}
	v, err := ParseVersion(strings.TrimPrefix(tag, prefix))
	if err != nil {
		return Version{}, false
	}
	return v, true
}

func (v Version) String() string {
	return v.semver().String()
}

func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

func (v Version) LessThan(o Version) bool {
	return v.Compare(o) < 0
}

func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) NextCandidates() Candidates {
	sv := v.semver()
	return Candidates{
		Patch: fromSemver(sv.IncPatch()),
		Minor: fromSemver(sv.IncMinor()),
		Major: fromSemver(sv.IncMajor()),
	}
}

func (v Version) semver() *semver.Version {
	return semver.New(v.Major, v.Minor, v.Patch, "", "")
}

func fromSemver(sv semver.Version) Version {
	return Version{Major: sv.Major(), Minor: sv.Minor(), Patch: sv.Patch()}
}
