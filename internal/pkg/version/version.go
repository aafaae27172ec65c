package version

// Set at build time:
//
//	go build -ldflags "-X netifmgr/internal/pkg/version.commit=$(git rev-parse HEAD) \
//	  -X netifmgr/internal/pkg/version.branch=$(git rev-parse --abbrev-ref HEAD) \
//	  -X netifmgr/internal/pkg/version.tag=$(git describe --tags --abbrev=0) \
//	  -X netifmgr/internal/pkg/version.dirty=dirty"
var (
	commit = "unknown"
	branch = "unknown"
	tag    = "none"
	dirty  = "clean"
)

type gitInfo struct {
	Commit string
	Branch string
	Tag    string
	Dirty  bool
}

// GetGitInfo returns a copy of the gitInfo struct containing git metadata.
func GetGitInfo() gitInfo {
	return gitInfo{
		Commit: commit,
		Branch: branch,
		Tag:    tag,
		Dirty:  dirty == "dirty",
	}
}

// String renders the info as "<tag> (<commit>)", with a "-dirty" suffix on modified trees.
func (g gitInfo) String() string {
	commit := g.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if g.Dirty {
		commit += "-dirty"
	}
	return g.Tag + " (" + commit + ")"
}

// UserAgent identifies API clients built from this tree.
func UserAgent() string {
	return "netifmgr/" + tag
}
