package scanner

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/camden-git/mediacatalog/media"
	"github.com/camden-git/mediacatalog/repository"
)

// number of visited directories between progress events
const directoryProgressCadence = 10

// ProgressPhase identifies which stage of a scan a progress event belongs
// to.
type ProgressPhase string

const (
	PhaseDirectory ProgressPhase = "directory"
	PhaseMetadata  ProgressPhase = "metadata"
	PhaseDatabase  ProgressPhase = "database"
)

// ProgressEvent is delivered to the caller's progress sink during a scan.
// Delivery is fire-and-forget; sinks must not block.
type ProgressEvent struct {
	Phase       ProgressPhase `json:"phase"`
	Directories int           `json:"directories"`
	Files       int           `json:"files"`
	Processed   int           `json:"processed"`
	Written     int           `json:"written"`
}

// ProgressFunc receives progress events. It may be nil.
type ProgressFunc func(ProgressEvent)

// WalkedFile is one media file found by the walker.
type WalkedFile struct {
	Directory    string // relative to the walk root, "" for the root itself
	Filename     string
	AbsolutePath string
	Kind         media.Kind
	ModTime      int64
}

// WalkResult is the flat output of one walk.
type WalkResult struct {
	Files       []WalkedFile
	Directories []string // relative paths of every directory visited
}

// Walker enumerates media files under a root directory. Symbolic links are
// never followed; cycles introduced by them are broken with a visited set
// of canonical paths that lives only for the duration of one walk.
type Walker struct {
	Root        string // absolute path of the scan root
	Start       string // root-relative subtree to walk, "" for the whole root
	SkipScanned bool
	Dirs        repository.DirectoryRepositoryInterface
	Progress    ProgressFunc
}

// Walk performs a depth-first traversal and returns every media file
// matching the photo/video allow-lists. Unreadable subtrees are logged and
// skipped; only a root that cannot be read at all is an error.
func (w *Walker) Walk() (*WalkResult, error) {
	startAbs := w.Root
	if w.Start != "" {
		startAbs = filepath.Join(w.Root, filepath.FromSlash(w.Start))
	}
	if _, err := os.ReadDir(startAbs); err != nil {
		return nil, fmt.Errorf("cannot read scan root %s: %w", startAbs, err)
	}

	result := &WalkResult{}
	visited := make(map[string]bool)

	type frame struct {
		abs string
		rel string
	}
	stack := []frame{{abs: startAbs, rel: w.Start}}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		canonical, err := filepath.EvalSymlinks(dir.abs)
		if err != nil {
			log.Printf("walker: cannot resolve %s, skipping subtree: %v", dir.abs, err)
			continue
		}
		if visited[canonical] {
			log.Printf("walker: cycle detected at %s, skipping", dir.abs)
			continue
		}
		visited[canonical] = true

		if w.Dirs != nil {
			if _, err := w.Dirs.Ensure(dir.rel); err != nil {
				log.Printf("walker: failed to register directory %q: %v", dir.rel, err)
			}
		}

		entries, err := os.ReadDir(dir.abs)
		if err != nil {
			log.Printf("walker: cannot read %s, skipping subtree: %v", dir.abs, err)
			continue
		}

		result.Directories = append(result.Directories, dir.rel)
		if w.Progress != nil && len(result.Directories)%directoryProgressCadence == 0 {
			w.Progress(ProgressEvent{
				Phase:       PhaseDirectory,
				Directories: len(result.Directories),
				Files:       len(result.Files),
			})
		}

		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			// symlinks are never followed, whether they point at files
			// or directories
			if entry.Type()&fs.ModeSymlink != 0 {
				continue
			}

			if entry.IsDir() {
				childRel := childPath(dir.rel, name)
				if w.SkipScanned && w.Dirs != nil {
					scanned, err := w.Dirs.IsScanned(childRel)
					if err != nil {
						log.Printf("walker: failed to check scan state of %q: %v", childRel, err)
					} else if scanned {
						continue
					}
				}
				stack = append(stack, frame{abs: filepath.Join(dir.abs, name), rel: childRel})
				continue
			}

			kind, ok := media.ClassifyFile(name)
			if !ok {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				log.Printf("walker: cannot stat %s, skipping: %v", filepath.Join(dir.abs, name), err)
				continue
			}

			result.Files = append(result.Files, WalkedFile{
				Directory:    dir.rel,
				Filename:     name,
				AbsolutePath: filepath.Join(dir.abs, name),
				Kind:         kind,
				ModTime:      info.ModTime().Unix(),
			})
		}
	}

	return result, nil
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
