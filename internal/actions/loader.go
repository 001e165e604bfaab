package actions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yubzen/replay/internal/workflow"
)

var actionFileRegex = regexp.MustCompile(`^(?:.*_)?(\d+)_chat_action\.ya?ml$`)

var ErrNotActionFile = errors.New("not a chat action file")

// actionFile is the subset of a recorded chat action we replay.
type actionFile struct {
	FileNumber *int     `yaml:"file_number"`
	Query      string   `yaml:"query"`
	Response   string   `yaml:"response"`
	URLs       []string `yaml:"urls"`
	Timestamp  string   `yaml:"timestamp"`
}

type LoadIssue struct {
	Path string
	Err  error
}

func (i LoadIssue) Error() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

type LoadResult struct {
	Dir     string
	Records []workflow.ActionRecord
	Issues  []LoadIssue
}

func IsActionFile(name string) bool {
	return actionFileRegex.MatchString(filepath.Base(name))
}

func FileNumber(name string) (int, error) {
	m := actionFileRegex.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotActionFile, name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse file number of %s: %w", name, err)
	}
	return n, nil
}

func ParseFile(path string) (workflow.ActionRecord, error) {
	n, err := FileNumber(path)
	if err != nil {
		return workflow.ActionRecord{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return workflow.ActionRecord{}, err
	}
	return parse(n, raw)
}

func parse(fileNumber int, raw []byte) (workflow.ActionRecord, error) {
	var af actionFile
	if err := yaml.Unmarshal(raw, &af); err != nil {
		return workflow.ActionRecord{}, fmt.Errorf("decode chat action: %w", err)
	}
	// An explicit file_number wins over the one in the file name.
	if af.FileNumber != nil {
		fileNumber = *af.FileNumber
	}

	urls := make([]string, 0, len(af.URLs))
	for _, u := range af.URLs {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}

	return workflow.ActionRecord{
		FileNumber: fileNumber,
		Query:      strings.TrimRight(af.Query, "\n"),
		Response:   strings.TrimSpace(af.Response),
		URLs:       urls,
		Timestamp:  strings.TrimSpace(af.Timestamp),
	}, nil
}

// LoadDir reads every chat action file in dir. Files that fail to parse are
// reported in Issues and skipped.
func LoadDir(dir string) (LoadResult, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return LoadResult{}, errors.New("actions directory is empty")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return LoadResult{}, fmt.Errorf("read actions directory %q: %w", dir, err)
	}

	res := LoadResult{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() || !IsActionFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		rec, err := ParseFile(path)
		if err != nil {
			res.Issues = append(res.Issues, LoadIssue{Path: path, Err: err})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func Find(records []workflow.ActionRecord, fileNumber int) (workflow.ActionRecord, bool) {
	for _, r := range records {
		if r.FileNumber == fileNumber {
			return r, true
		}
	}
	return workflow.ActionRecord{}, false
}
