// Package subset discovers and parses migration subset files laid out under
// a migration's metadata/subsets/ directory tree.
package subset

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/alicel/migsim/pkg/work"
)

var subsetFileRE = regexp.MustCompile(`^subset-(.+)$`)

// Warning describes a problem found with a subset file without failing the
// whole read. A walk error, a malformed path or an unparsable line means the
// file was skipped; a declared numSSTables that disagrees with the parsed
// item count is reported for a subset that is still returned.
type Warning struct {
	Path   string
	Reason string
}

// Reader walks an input directory and parses its subset files.
type Reader struct {
	logger *zap.Logger
}

// NewReader constructs a Reader. A nil logger is replaced with zap.NewNop().
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reader{logger: logger}
}

// Read validates root as an input directory, walks metadata/subsets/ for
// subset-* files, and returns the canonically ordered, successfully parsed
// subsets. Malformed individual files are dropped and reported as warnings
// rather than failing the read; Read only returns an error when the
// directory structure itself is invalid or when nothing usable remains.
func (r *Reader) Read(root string) ([]Subset, []Warning, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrInputNotFound, root)
		}

		if os.IsPermission(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrPermissionDenied, root)
		}

		return nil, nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInputNotDirectory, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	migrationID := filepath.Base(filepath.Clean(absRoot))

	subsetsRoot := filepath.Join(root, "metadata", "subsets")

	if _, err := os.Stat(subsetsRoot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingSubsetsDir, subsetsRoot)
		}

		return nil, nil, fmt.Errorf("stat %s: %w", subsetsRoot, err)
	}

	var (
		results  []Subset
		warnings []Warning
		found    int
	)

	walkErr := filepath.WalkDir(subsetsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, Warning{Path: path, Reason: err.Error()})

			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !subsetFileRE.MatchString(d.Name()) {
			return nil
		}

		found++

		s, warn, perr := r.parseSubsetFile(subsetsRoot, path, migrationID)
		if warn != nil {
			warnings = append(warnings, *warn)
		}

		if perr != nil {
			warnings = append(warnings, Warning{Path: path, Reason: perr.Error()})

			return nil
		}

		results = append(results, s)

		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", subsetsRoot, walkErr)
	}

	for _, w := range warnings {
		r.logger.Warn("dropped subset file", zap.String("path", w.Path), zap.String("reason", w.Reason))
	}

	if len(results) == 0 {
		return nil, warnings, fmt.Errorf("%w: %d candidate file(s) all malformed", ErrNoValidSubsets, found)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return Less(results[i], results[j])
	})

	return results, warnings, nil
}

// parseSubsetFile parses a single subset-* file located at path, relative to
// subsetsRoot, into a Subset. A non-nil returned Warning records an
// item-count mismatch note even when the subset itself is otherwise valid; a
// non-nil error means the file must be dropped entirely.
func (r *Reader) parseSubsetFile(subsetsRoot, path, migrationID string) (Subset, *Warning, error) {
	rel, err := filepath.Rel(subsetsRoot, path)
	if err != nil {
		return Subset{}, nil, fmt.Errorf("relative path: %w", err)
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")

	var (
		label, subsetIDDir, numSSTablesSeg, dataSizeSeg string
		tier                                            = TierUniversal
	)

	switch len(segments) {
	case 5:
		label, subsetIDDir, numSSTablesSeg, dataSizeSeg = segments[0], segments[1], segments[2], segments[3]
	case 6:
		label, subsetIDDir = segments[0], segments[1]

		parsedTier, ok := ParseTier(segments[2])
		if !ok {
			return Subset{}, nil, fmt.Errorf("unrecognized tier segment %q", segments[2])
		}

		tier = parsedTier
		numSSTablesSeg, dataSizeSeg = segments[3], segments[4]
	default:
		return Subset{}, nil, fmt.Errorf("unexpected path depth %d", len(segments))
	}

	m := subsetFileRE.FindStringSubmatch(segments[len(segments)-1])
	if m == nil {
		return Subset{}, nil, fmt.Errorf("filename %q does not match subset-<id>", segments[len(segments)-1])
	}

	subsetID := m[1]
	if subsetID != subsetIDDir {
		return Subset{}, nil, fmt.Errorf("subset ID mismatch: path %q vs filename %q", subsetIDDir, subsetID)
	}

	numSSTables, err := strconv.Atoi(numSSTablesSeg)
	if err != nil || numSSTables < 0 {
		return Subset{}, nil, fmt.Errorf("invalid numSSTables segment %q", numSSTablesSeg)
	}

	dataSize, err := strconv.ParseInt(dataSizeSeg, 10, 64)
	if err != nil || dataSize < 0 {
		return Subset{}, nil, fmt.Errorf("invalid dataSize segment %q", dataSizeSeg)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Subset{}, nil, fmt.Errorf("read %s: %w", path, err)
	}

	items, err := parseItems(content)
	if err != nil {
		return Subset{}, nil, fmt.Errorf("parse items in %s: %w", path, err)
	}

	s := Subset{
		MigrationID: migrationID,
		Label:       label,
		SubsetID:    subsetID,
		Tier:        tier,
		NumSSTables: numSSTables,
		DataSize:    dataSize,
		Path:        path,
		Items:       items,
	}

	var warning *Warning

	if len(items) > 0 && len(items) != numSSTables {
		warning = &Warning{
			Path: path,
			Reason: fmt.Sprintf(
				"declared numSSTables=%d but parsed %d item(s), content digest=%x",
				numSSTables, len(items), xxhash.Sum64(content),
			),
		}
	}

	return s, warning, nil
}

// parseItems parses the line-oriented "key,size" or "key size" content of a
// subset file. A blank file (or one containing only blank/comment lines)
// yields zero items, not an error; the caller falls back to a synthetic item
// via Subset.WorkItems. A single malformed line fails the whole file.
func parseItems(content []byte) ([]work.Item, error) {
	var items []work.Item

	scanner := bufio.NewScanner(strings.NewReader(string(content)))

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, size, err := parseItemLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		items = append(items, work.Item{Key: key, Size: size})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return items, nil
}

func parseItemLine(line string) (string, int64, error) {
	var key, sizeStr string

	if idx := strings.IndexByte(line, ','); idx >= 0 {
		key = strings.TrimSpace(line[:idx])
		sizeStr = strings.TrimSpace(line[idx+1:])
	} else {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return "", 0, fmt.Errorf("expected \"key,size\" or \"key size\", got %q", line)
		}

		key, sizeStr = fields[0], fields[1]
	}

	if key == "" {
		return "", 0, fmt.Errorf("empty key in %q", line)
	}

	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || size < 0 {
		return "", 0, fmt.Errorf("invalid size %q in %q", sizeStr, line)
	}

	return key, size, nil
}
