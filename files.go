package agentsession

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/youssefsiam38/agentsession/storage"
)

// SessionInfo describes one persisted session file.
type SessionInfo struct {
	ID         string
	Path       string
	Name       string
	Cwd        string
	CreatedAt  time.Time
	Modified   time.Time
	EntryCount int
}

// ListSessions scans dir for session files and returns them newest-modified
// first. Files that cannot be read or whose header is corrupt are skipped.
func ListSessions(dir string) ([]SessionInfo, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewSessionError("ListSessions", err)
	}

	var infos []SessionInfo
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), FileExtension) {
			continue
		}
		path := filepath.Join(dir, dirEntry.Name())
		info, ok := readSessionInfo(path)
		if !ok {
			continue
		}
		if stat, err := dirEntry.Info(); err == nil {
			info.Modified = stat.ModTime()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Modified.After(infos[j].Modified)
	})
	return infos, nil
}

func readSessionInfo(path string) (SessionInfo, bool) {
	lines, err := storage.ReadFileLines(path)
	if err != nil || len(lines) == 0 {
		return SessionInfo{}, false
	}
	header, err := parseHeader(lines[0])
	if err != nil {
		return SessionInfo{}, false
	}

	info := SessionInfo{
		ID:        header.ID,
		Path:      path,
		Cwd:       header.Cwd,
		CreatedAt: header.Timestamp,
	}
	for _, line := range lines[1:] {
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		info.EntryCount++
		if e, ok := entry.(SessionInfoEntry); ok {
			info.Name = e.Name
		}
	}
	return info, true
}
