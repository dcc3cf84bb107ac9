package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	"github.com/gadzhilaev/smile-ai-tg/internal/i18n"
	"github.com/gadzhilaev/smile-ai-tg/internal/util"
)

type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// loadKeywords reads the escalation keyword override. A missing file or an
// empty path yields nil, which selects the built-in list.
func loadKeywords(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	path, err := util.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var file keywordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse keywords file %s: %w", path, err)
	}
	return file.Keywords, nil
}

func saveKeywords(path string, keywords []string) error {
	path, err := util.ExpandPath(path)
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	sort.Strings(keywords)
	data, err := yaml.Marshal(keywordFile{Keywords: keywords})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// addKeyword starts from the built-in list when the file does not exist yet.
func addKeyword(path, keyword string) error {
	keywords, err := loadKeywords(path)
	if err != nil {
		return err
	}
	if keywords == nil {
		keywords = append([]string(nil), core.DefaultEscalationKeywords...)
	}
	keywords = append(keywords, keyword)
	return saveKeywords(path, core.NewDetector(keywords).Keywords())
}

func removeKeyword(path, keyword string) error {
	keywords, err := loadKeywords(path)
	if err != nil {
		return err
	}
	if keywords == nil {
		keywords = append([]string(nil), core.DefaultEscalationKeywords...)
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	kept := keywords[:0]
	for _, k := range core.NewDetector(keywords).Keywords() {
		if k != keyword {
			kept = append(kept, k)
		}
	}
	return saveKeywords(path, kept)
}

func listKeywords(w io.Writer, path string) error {
	keywords, err := loadKeywords(path)
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		fmt.Fprintln(w, i18n.T("keywords_none"))
	}
	for _, k := range core.NewDetector(keywords).Keywords() {
		fmt.Fprintln(w, k)
	}
	return nil
}
